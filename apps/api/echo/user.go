package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var errNoPermsToSetRoles = "not enough rights to set these roles"

type userApi struct {
	svc      *user.Service
	students *student.Service
	auth     authenticator
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth authenticator,
	svc *user.Service,
	students *student.Service,
	validate *validator.Validate,
) {
	api := userApi{svc: svc, students: students, auth: auth, validate: validate}

	ug := g.Group("/users")
	ug.POST("/login", api.login)

	ag := ug.Group("", jwt)
	ag.POST("/register", api.create, adminMiddleware(auth))
	ag.GET("", api.query, adminMiddleware(auth))
	ag.GET("/roles", api.queryRoles, adminMiddleware(auth))
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/students", api.children)
}

// Handlers

// create registers staff and guardian accounts; an admin cannot grant a role above their own.
func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if core.IsNotFound(err) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	token, claims, err := api.auth.issueToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
		Role:      claims.Role,
		User:      usr,
	})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// retrieve is open to the user themselves and to admins; others get a 404.
func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.visibleUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// children lists the students a guardian is responsible for, under the same visibility as retrieve.
func (api *userApi) children(ctx echo.Context) error {
	usr, err := api.visibleUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsParent() {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}

	students, err := api.students.ListByGuardian(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing children")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *userApi) visibleUser(ctx echo.Context) (user.User, error) {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	id := ctx.Param("id")
	if id == ctxUsr.ID {
		return ctxUsr, nil
	}
	if !ctxUsr.IsAdmin() {
		return user.User{}, errHttpNotFound
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	return usr, nil
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	// LoginResponse carries the caller's primary role (admin | nurse | parent) next to the token.
	LoginResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		Role      string    `json:"role"`
		User      user.User `json:"user"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
