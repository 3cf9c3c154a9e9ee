package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type campaignApi struct {
	svc      *vaccination.Service
	auth     authenticator
	validate *validator.Validate
}

func registerCampaignAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, svc *vaccination.Service, validate *validator.Validate) {
	api := campaignApi{svc: svc, auth: auth, validate: validate}

	cg := g.Group("/campaigns", jwt)

	// writes: role checks are done by the service
	cg.POST("", api.create)
	cg.PUT("/:id", api.update)
	cg.POST("/:id/students", api.addStudents)

	rg := cg.Group("", policyMiddleware(auth, svc))
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.GET("/:id/participations", api.queryParticipations)
}

func (api *campaignApi) create(ctx echo.Context) error {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data vaccination.NewCampaign
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampaign")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCampaign(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating campaign")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *campaignApi) update(ctx echo.Context) error {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data vaccination.UpdateCampaign
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampaign")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateCampaign(ctx.Request().Context(), ctx.Param("id"), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "updating campaign")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *campaignApi) addStudents(ctx echo.Context) error {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data vaccination.AddStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddStudents")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	parts, err := api.svc.AddStudentsToCampaign(ctx.Request().Context(), ctx.Param("id"), data.StudentIDs, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "adding students to campaign")
	}
	return ctx.JSON(http.StatusCreated, parts)
}

func (api *campaignApi) query(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	var filter vaccination.CampaignFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CampaignFilter")
	}
	filter.Clean()
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	page, err := api.svc.QueryCampaigns(ctx.Request().Context(), policy, filter, bindPagination(ctx), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying campaigns")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *campaignApi) retrieve(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetCampaign(ctx.Request().Context(), ctx.Param("id"), policy)
	if err != nil {
		return errors.Wrap(err, "getting campaign")
	}
	return ctx.JSON(http.StatusOK, c)
}

// queryParticipations lists the participations of a campaign the caller can see.
func (api *campaignApi) queryParticipations(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetCampaign(ctx.Request().Context(), ctx.Param("id"), policy)
	if err != nil {
		return errors.Wrap(err, "getting campaign")
	}

	var filter vaccination.ParticipationFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ParticipationFilter")
	}
	filter.Clean()
	filter.CampaignID = c.ID
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	page, err := api.svc.QueryParticipations(ctx.Request().Context(), policy, filter, bindPagination(ctx), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying participations")
	}
	return ctx.JSON(http.StatusOK, page)
}
