package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	inmemdb "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/inmem"
)

func TestNewUser_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	svc := user.NewService(inmemdb.NewUserRepository(inmemdb.NewDB()))

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Head Nurse",
			Username:        "headnurse",
			Email:           "head@test.cd",
			Password:        "Vacc1ne!Day",
			PasswordConfirm: "Vacc1ne!Day",
			Roles:           []string{user.RoleNurseHead},
		}
	}

	tests := []struct {
		name    string
		mutate  func(nu *user.NewUser)
		wantFld string
		wantMsg string
	}{
		{name: "valid", mutate: func(nu *user.NewUser) {}},
		{name: "name required", mutate: func(nu *user.NewUser) { nu.Name = "   " }, wantFld: "name", wantMsg: "this field is required"},
		{
			name:    "username or email",
			mutate:  func(nu *user.NewUser) { nu.Username, nu.Email = "", "" },
			wantFld: "username", wantMsg: "one of username or email is required",
		},
		{name: "unknown role", mutate: func(nu *user.NewUser) { nu.Roles = []string{"janitor:"} }, wantFld: "roles", wantMsg: "invalid roles"},
		{name: "phone", mutate: func(nu *user.NewUser) { nu.Phone = "+243 (81) 555-0101" }},
		{name: "bad phone", mutate: func(nu *user.NewUser) { nu.Phone = "call me" }, wantFld: "phone", wantMsg: "invalid phone number"},
		{
			name:    "guardian without email",
			mutate:  func(nu *user.NewUser) { nu.Email, nu.Roles = "", []string{user.RoleParent} },
			wantFld: "email", wantMsg: "guardians must have an email address to receive consent requests",
		},
		{name: "staff without email", mutate: func(nu *user.NewUser) { nu.Email = "" }},
		{
			name:    "password too short",
			mutate:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Ab1!", "Ab1!" },
			wantFld: "password", wantMsg: "password must contain at least 8 characters",
		},
		{
			name:    "password with spaces",
			mutate:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Vacc1ne! Day", "Vacc1ne! Day" },
			wantFld: "password", wantMsg: "password must not contain whitespace",
		},
		{
			name:    "password all numeric",
			mutate:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "1234567890", "1234567890" },
			wantFld: "password", wantMsg: "password cannot be entirely numeric",
		},
		{
			name:    "password too simple",
			mutate:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "vaccineday", "vaccineday" },
			wantFld: "password",
			wantMsg: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		},
		{
			name:    "password like username",
			mutate:  func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Headnurse1!", "Headnurse1!" },
			wantFld: "password", wantMsg: "password cannot be similar to user attributes",
		},
		{name: "confirmation mismatch", mutate: func(nu *user.NewUser) { nu.PasswordConfirm = "lol" }, wantFld: "password_confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.mutate(&nu)
			err := nu.Validate(context.Background(), validate, svc)
			if tt.wantFld == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %T: %v", err, err)

			msgs := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				msgs[fe.Field()] = fe.Translate(translator)
			}
			require.Contains(t, msgs, tt.wantFld)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msgs[tt.wantFld])
			}
		})
	}
}
