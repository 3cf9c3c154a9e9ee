package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
)

const studentColumns = `id, code, name, class_name, gender, date_of_birth, guardian_ids, created_at, updated_at`

type dbStudent struct {
	ID          string         `db:"id"`
	Code        string         `db:"code"`
	Name        string         `db:"name"`
	ClassName   null.String    `db:"class_name"`
	Gender      null.String    `db:"gender"`
	DateOfBirth null.Time      `db:"date_of_birth"`
	GuardianIDs pq.StringArray `db:"guardian_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func newDBStudent(s student.Student) dbStudent {
	guardians := s.GuardianIDs
	if guardians == nil {
		guardians = []string{}
	}
	return dbStudent{
		ID:          s.ID,
		Code:        s.Code,
		Name:        s.Name,
		ClassName:   null.NewString(s.ClassName, s.ClassName != ""),
		Gender:      null.NewString(s.Gender, s.Gender != ""),
		DateOfBirth: null.NewTime(s.DateOfBirth, !s.DateOfBirth.IsZero()),
		GuardianIDs: guardians,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (s dbStudent) toStudent() student.Student {
	guardians := []string(s.GuardianIDs)
	if guardians == nil {
		guardians = []string{}
	}
	return student.Student{
		ID:          s.ID,
		Code:        s.Code,
		Name:        s.Name,
		ClassName:   s.ClassName.String,
		Gender:      s.Gender.String,
		DateOfBirth: s.DateOfBirth.Time.UTC(),
		GuardianIDs: guardians,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

func toStudents(rows []dbStudent) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO student (` + studentColumns + `) VALUES
		(:id, :code, :name, :class_name, :gender, :date_of_birth, :guardian_ids, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newDBStudent(s)); err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row dbStudent
	if err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		where = append(where, "(name ILIKE "+p+" OR code ILIKE "+p+")")
	}
	if filter.ClassName != "" {
		where = append(where, "class_name = "+arg(filter.ClassName))
	}
	if filter.GuardianID != "" {
		if !isUUID(filter.GuardianID) {
			return []student.Student{}, nil
		}
		where = append(where, arg(filter.GuardianID)+" = ANY(guardian_ids)")
	}

	q := `SELECT ` + studentColumns + ` FROM student`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering)

	var rows []dbStudent
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return toStudents(rows), nil
}

func (repo *studentRepository) ListStudentsByID(ctx context.Context, ids ...string) ([]student.Student, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []student.Student{}, nil
	}
	var rows []dbStudent
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+studentColumns+` FROM student WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return toStudents(rows), nil
}
