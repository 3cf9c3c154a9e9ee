package main

import (
	"context"
	"fmt"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var primaryRoles = map[string]string{
	user.PrimaryAdmin:  user.RoleAdmin,
	user.PrimaryNurse:  user.RoleNurse,
	user.PrimaryParent: user.RoleParent,
}

// parseRole accepts a primary role name or any known role value.
func parseRole(role string) (string, error) {
	role = core.CleanString(role, true /* lower */)
	if r, ok := primaryRoles[role]; ok {
		return r, nil
	}
	if user.RolePriority(role) > 0 {
		return role, nil
	}
	return "", fmt.Errorf("%q: unknown role", role)
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, uname, email, role, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	roles := user.AllRoles
	if !isAdmin {
		r, err := parseRole(role)
		if err != nil {
			return err
		}
		roles = []string{r}
	}

	usr, err := cli.findUser(ctx, uname, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		if name == "" {
			name = uname
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:     name,
			Username: uname,
			Email:    email,
			Password: pwd,
			Roles:    roles,
		})
		return err
	}

	active := true
	uu := user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		Phone:    usr.Phone,
		IsActive: &active,
		Roles:    roles,
		Password: pwd,
	}
	if name != "" {
		uu.Name = name
	}
	_, err = cli.usrSvc.Update(ctx, usr.ID, uu)
	return err
}

func (cli *commandLine) findUser(ctx context.Context, uname, email string) (user.User, error) {
	if uname != "" {
		if usr, err := cli.usrSvc.GetByUsername(ctx, uname); !core.IsNotFound(err) {
			return usr, err
		}
	}
	if email != "" {
		return cli.usrSvc.GetByEmail(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}
