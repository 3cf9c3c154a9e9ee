package inmemdb

import (
	"context"
	"sort"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, st := range repo.db.table {
		if st.Code == s.Code {
			return student.Student{}, student.ErrCodeExists
		}
	}
	s = copyStudent(s)
	repo.db.table[s.ID] = &s
	return copyStudent(s), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return copyStudent(*s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if filter.Search != "" && !containsFold(filter.Search, s.Name, s.Code) {
			continue
		}
		if filter.ClassName != "" && s.ClassName != filter.ClassName {
			continue
		}
		if filter.GuardianID != "" && !s.HasGuardian(filter.GuardianID) {
			continue
		}
		students = append(students, copyStudent(*s))
	}

	sort.SliceStable(students, lessBy(ordering, func(i int, name string) interface{} {
		switch name {
		case "id":
			return students[i].ID
		case "code":
			return students[i].Code
		case "name":
			return students[i].Name
		case "class_name":
			return students[i].ClassName
		case "date_of_birth":
			return students[i].DateOfBirth
		case "created_at":
			return students[i].CreatedAt
		}
		return nil
	}))
	return students, nil
}

func (repo *studentRepository) ListStudentsByID(_ context.Context, ids ...string) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.table[id]; ok {
			students = append(students, copyStudent(*s))
		}
	}
	return students, nil
}

func copyStudent(s student.Student) student.Student {
	s.GuardianIDs = append([]string{}, s.GuardianIDs...)
	return s
}
