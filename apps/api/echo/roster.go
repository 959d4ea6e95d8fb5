package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/roster"
)

type rosterApi struct {
	svc      *roster.Service
	markSvc  *mark.Service
	validate *validator.Validate
}

func registerRosterAPI(g *echo.Group, svc *roster.Service, markSvc *mark.Service, validate *validator.Validate) {
	api := rosterApi{svc: svc, markSvc: markSvc, validate: validate}

	cg := g.Group("/classes")
	cg.POST("", api.classCreate)
	cg.GET("", api.classQuery)
	cg.DELETE("/:id", api.classDestroy)
	cg.POST("/:id/subjects", api.classAssignSubjects)
	cg.POST("/:id/teachers", api.classAssignTeachers)
	cg.POST("/:id/marks", api.classGenerateMarks)

	sg := g.Group("/subjects")
	sg.POST("", api.subjectCreate)
	sg.GET("", api.subjectQuery)

	tg := g.Group("/teachers")
	tg.POST("", api.teacherCreate)
	tg.GET("", api.teacherQuery)
	tg.POST("/import", api.teacherImport)
	tg.GET("/:id", api.teacherRetrieve)
	tg.PUT("/:id", api.teacherUpdate)
	tg.DELETE("/:id", api.teacherDestroy)

	stg := g.Group("/students")
	stg.POST("", api.studentCreate)
	stg.GET("", api.studentQuery)
	stg.POST("/import", api.studentImport)
	stg.GET("/:id", api.studentRetrieve)
	stg.PUT("/:id", api.studentUpdate)
	stg.DELETE("/:id", api.studentDestroy)
}

// Classes

func (api *rosterApi) classCreate(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	c, err := api.svc.CreateClass(ctx.Request().Context(), db, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *rosterApi) classQuery(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), db)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *rosterApi) classDestroy(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), db, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) classAssignSubjects(ctx echo.Context) error {
	var data roster.AssignSubjects
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignSubjects")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.AssignSubjects(ctx.Request().Context(), db, ctx.Param("id"), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) classAssignTeachers(ctx echo.Context) error {
	var data roster.AssignTeachers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeachers")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.AssignTeachers(ctx.Request().Context(), db, ctx.Param("id"), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) classGenerateMarks(ctx echo.Context) error {
	var data GenerateMarksRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateMarksRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	created, err := api.markSvc.GenerateForClass(ctx.Request().Context(), db, ctx.Param("id"), data.SubjectID, data.AcademicYear)
	if err != nil {
		return errors.Wrap(err, "generating marks")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"created": created})
}

// Subjects

func (api *rosterApi) subjectCreate(ctx echo.Context) error {
	var data roster.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.CreateSubject(ctx.Request().Context(), db, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) subjectQuery(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), db)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

// Teachers

func (api *rosterApi) teacherCreate(ctx echo.Context) error {
	var data roster.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	t, err := api.svc.CreateTeacher(ctx.Request().Context(), db, contextTenant(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *rosterApi) teacherQuery(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context(), db)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *rosterApi) teacherRetrieve(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.GetTeacher(ctx.Request().Context(), db, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *rosterApi) teacherUpdate(ctx echo.Context) error {
	var data roster.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	orig, err := api.svc.GetTeacher(ctx.Request().Context(), db, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	t, err := api.svc.UpdateTeacher(ctx.Request().Context(), db, orig.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *rosterApi) teacherDestroy(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTeacher(ctx.Request().Context(), db, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) teacherImport(ctx echo.Context) error {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportRequest")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.ImportTeachers(ctx.Request().Context(), db, contextTenant(ctx), data.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(importStatus(res), res)
}

// Students

func (api *rosterApi) studentCreate(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.CreateStudent(ctx.Request().Context(), db, contextTenant(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *rosterApi) studentQuery(ctx echo.Context) error {
	var filter roster.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StudentFilter")
	}
	filter.Clean()
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	students, err := api.svc.FilterStudents(ctx.Request().Context(), db, filter)
	if err != nil {
		return errors.Wrap(err, "filtering students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) studentRetrieve(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetStudent(ctx.Request().Context(), db, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) studentUpdate(ctx echo.Context) error {
	var data roster.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	orig, err := api.svc.GetStudent(ctx.Request().Context(), db, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateStudent(ctx.Request().Context(), db, orig.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *rosterApi) studentDestroy(ctx echo.Context) error {
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(ctx.Request().Context(), db, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) studentImport(ctx echo.Context) error {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportRequest")
	}
	db, err := contextDB(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.ImportStudents(ctx.Request().Context(), db, contextTenant(ctx), data.Content, data.AcademicYear)
	if err != nil {
		return err
	}
	return ctx.JSON(importStatus(res), res)
}

// importStatus maps a partially failed batch to 207 Multi-Status, a fully
// failed one to 400 and a clean one to 201.
func importStatus(res roster.ImportResult) int {
	switch {
	case res.PartialFailure() && res.Created > 0:
		return http.StatusMultiStatus
	case res.PartialFailure():
		return http.StatusBadRequest
	default:
		return http.StatusCreated
	}
}
