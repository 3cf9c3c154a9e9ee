package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
)

const dateLayout = "2006-01-02"

type Student struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	ClassName   string    `json:"class_name"`
	Gender      string    `json:"gender,omitempty"`
	DateOfBirth time.Time `json:"date_of_birth"`
	GuardianIDs []string  `json:"guardian_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// HasGuardian reports whether the user identified by `userID` is a guardian of the student.
func (s Student) HasGuardian(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range s.GuardianIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Code        string   `json:"code" validate:"required,max=32,alphanum_"`
	Name        string   `json:"name" validate:"required,max=128"`
	ClassName   string   `json:"class_name" validate:"omitempty,max=32"`
	Gender      string   `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string   `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	GuardianIDs []string `json:"guardian_ids" validate:"omitempty,dive,uuid"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.GuardianIDs = core.DedupeStrings(ns.GuardianIDs)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkGuardians(ctx, ns.GuardianIDs)
}

type QueryFilter struct {
	Search     string `query:"search"`
	ClassName  string `query:"class_name"`
	GuardianID string `query:"-"` // set from the caller's role, never from the request
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassName = core.CleanString(qf.ClassName)
}
