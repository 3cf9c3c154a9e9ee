package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, code, name, className string, guardianIDs ...string) student.Student {
	now := time.Now().UTC()
	if guardianIDs == nil {
		guardianIDs = []string{}
	}
	s := student.Student{
		ID:          uuid.New().String(),
		Code:        code,
		Name:        name,
		ClassName:   className,
		DateOfBirth: time.Date(2015, time.March, 1, 0, 0, 0, 0, time.UTC),
		GuardianIDs: guardianIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
