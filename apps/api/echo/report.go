package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, svc *report.Service, validate *validator.Validate) {
	api := reportApi{svc: svc, validate: validate}

	rg := g.Group("/reports")
	rg.GET("", api.reportQuery)
	rg.PUT("", api.reportSave)
	rg.DELETE("/:id", api.reportDestroy)
}

func (api *reportApi) reportQuery(ctx echo.Context) error {
	var filter report.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	reports, err := api.svc.Filter(ctx.Request().Context(), db, filter)
	if err != nil {
		return errors.Wrap(err, "filtering reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

// reportSave creates the report or replaces the one sharing its
// (student, subject, teacher, trimester) tuple.
func (api *reportApi) reportSave(ctx echo.Context) error {
	var data report.SaveReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveReport")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	r, err := api.svc.Save(ctx.Request().Context(), db, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) reportDestroy(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), db, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
