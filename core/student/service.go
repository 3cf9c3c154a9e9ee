package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("student not found")
	ErrCodeExists = core.NewDuplicateError("a student with this code already exists", "code")

	errGuardianNotFound = "guardian not found"
	errNotAParent       = "guardian must be a parent"

	SortableFields = map[string]bool{
		"code":          true,
		"name":          true,
		"class_name":    true,
		"date_of_birth": true,
		"created_at":    true,
	}
	DefaultOrdering = core.DBOrdering{Field: "name", Ascending: true}
)

type (
	Repository interface {
		// CreateStudent fails with ErrCodeExists when the code is taken.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Name or Student.Code.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		// ListStudentsByID returns the students among `ids` that exist.
		ListStudentsByID(ctx context.Context, ids ...string) ([]Student, error)
	}

	// UserLister finds users by ID; *user.Service is one.
	UserLister interface {
		ListByID(ctx context.Context, ids ...string) ([]user.User, error)
	}

	Service struct {
		repo  Repository
		users UserLister
	}
)

func NewService(repo Repository, users UserLister) *Service {
	return &Service{repo: repo, users: users}
}

// checkGuardians makes sure that every guardian exists and is a parent.
func (svc *Service) checkGuardians(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := svc.users.ListByID(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "listing guardians")
	}
	if len(users) != len(ids) {
		return core.NewValidationError(nil, core.FieldError{Field: "guardian_ids", Error: errGuardianNotFound})
	}
	for _, usr := range users {
		if !usr.IsParent() {
			return core.NewValidationError(nil, core.FieldError{Field: "guardian_ids", Error: errNotAParent})
		}
	}
	return nil
}

// Create creates a new Student. `ns` is expected to be validated already.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	dob, err := time.Parse(dateLayout, ns.DateOfBirth)
	if err != nil {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: "invalid date"})
	}
	now := time.Now().UTC()
	s := Student{
		ID:          uuid.New().String(),
		Code:        ns.Code,
		Name:        ns.Name,
		ClassName:   ns.ClassName,
		Gender:      ns.Gender,
		DateOfBirth: dob,
		GuardianIDs: ns.GuardianIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.GuardianIDs == nil {
		s.GuardianIDs = []string{}
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, core.CleanOrderings(ordering, SortableFields, DefaultOrdering))
}

// ListByID returns the students among `ids` that exist; unknown ids are skipped.
func (svc *Service) ListByID(ctx context.Context, ids ...string) ([]Student, error) {
	if len(ids) == 0 {
		return []Student{}, nil
	}
	return svc.repo.ListStudentsByID(ctx, core.DedupeStrings(ids)...)
}

// ListByGuardian returns the children of the user identified by `guardianID`.
func (svc *Service) ListByGuardian(ctx context.Context, guardianID string) ([]Student, error) {
	if guardianID == "" {
		return []Student{}, nil
	}
	return svc.repo.QueryStudents(ctx, QueryFilter{GuardianID: guardianID}, []core.DBOrdering{DefaultOrdering})
}
