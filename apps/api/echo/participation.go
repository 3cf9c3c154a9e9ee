package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

type participationApi struct {
	svc      *vaccination.Service
	auth     authenticator
	validate *validator.Validate
}

func registerParticipationAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, svc *vaccination.Service, validate *validator.Validate) {
	api := participationApi{svc: svc, auth: auth, validate: validate}

	pg := g.Group("/participations", jwt)
	pg.PUT("/:id/consent", api.setConsent)
	pg.PUT("/:id/vaccination", api.recordVaccination)

	rg := pg.Group("", policyMiddleware(auth, svc))
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
}

func (api *participationApi) setConsent(ctx echo.Context) error {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data vaccination.ConsentDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConsentDecision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	part, err := api.svc.SetConsent(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "setting consent")
	}
	return ctx.JSON(http.StatusOK, part)
}

func (api *participationApi) recordVaccination(ctx echo.Context) error {
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data vaccination.VaccinationRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VaccinationRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	part, err := api.svc.RecordVaccination(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "recording vaccination")
	}
	return ctx.JSON(http.StatusOK, part)
}

func (api *participationApi) query(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	var filter vaccination.ParticipationFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ParticipationFilter")
	}
	filter.Clean()
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

func (api *participationApi) retrieve(ctx echo.Context) error {
	policy, err := getContextPolicy(ctx)
	if err != nil {
		return err
	}
	part, err := api.svc.GetParticipation(ctx.Request().Context(), ctx.Param("id"), policy)
	if err != nil {
		return errors.Wrap(err, "getting participation")
	}
	return ctx.JSON(http.StatusOK, part)
}
