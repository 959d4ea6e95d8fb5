package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
)

type markApi struct {
	svc      *mark.Service
	validate *validator.Validate
}

func registerMarkAPI(g *echo.Group, svc *mark.Service, validate *validator.Validate) {
	api := markApi{svc: svc, validate: validate}

	mg := g.Group("/marks")
	mg.GET("", api.markQuery)
	mg.PUT("/:id", api.markUpdate)

	hg := g.Group("/mark-header-config")
	hg.GET("", api.configRetrieve)
	hg.POST("", api.configSave)

	g.GET("/students/:id/results", api.studentResults)
	g.GET("/progress/teachers", api.teacherProgress)
}

func (api *markApi) markQuery(ctx echo.Context) error {
	var filter mark.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to Filter")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	marks, err := api.svc.Filter(ctx.Request().Context(), db, filter)
	if err != nil {
		return errors.Wrap(err, "filtering marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

// markUpdate overwrites the full score row and recomputes the total from the
// active header set; concurrent saves settle last-write-wins.
func (api *markApi) markUpdate(ctx echo.Context) error {
	var data mark.Values
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Values")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), db, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) configRetrieve(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	cfg, err := api.svc.Config(ctx.Request().Context(), db, ctx.QueryParam("subject"), ctx.QueryParam("grade"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *markApi) configSave(ctx echo.Context) error {
	var data mark.NewHeaderConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHeaderConfig")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	cfg, err := api.svc.SaveConfig(ctx.Request().Context(), db, data)
	if err != nil {
		return errors.Wrap(err, "saving header config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *markApi) studentResults(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	period := ctx.QueryParam("trimester")
	if period == "" {
		period = mark.PeriodYearly
	}

	results, err := api.svc.StudentResults(ctx.Request().Context(), db, ctx.Param("id"), period)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *markApi) teacherProgress(ctx echo.Context) error {
	trimester := core.CleanString(ctx.QueryParam("trimester"))
	if trimester == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "trimester", Error: "trimester is required"})
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	progress, err := api.svc.Progress(ctx.Request().Context(), db, trimester)
	if err != nil {
		return errors.Wrap(err, "computing teacher progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}
