package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type studentApi struct {
	svc      *student.Service
	auth     authenticator
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth authenticator,
	svc *student.Service,
	vaccSvc *vaccination.Service,
	validate *validator.Validate,
) {
	api := studentApi{svc: svc, auth: auth, validate: validate}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, adminMiddleware(auth))

	rg := sg.Group("", policyMiddleware(auth, vaccSvc))
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

// query lists all students to staff and only their children to parents.
func (api *studentApi) query(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	policy.ScopeStudents(&filter)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if !policy.AllowsStudent(s) {
		return student.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, s)
}
