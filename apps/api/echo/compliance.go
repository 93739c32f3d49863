package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/backup"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/core/report"
)

// history view: newest first
var defaultRecordOrdering = core.Ordering{Field: "date", Ascending: false}

type complianceApi struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	svc        *compliance.Service
	formatter  *report.Formatter
	reconciler *backup.Reconciler
	mailer     core.EmailService
}

func (api *complianceApi) register(g *echo.Group) {
	g.GET("/catalog", api.catalog)

	tg := g.Group("/teachers")
	tg.GET("", api.queryTeachers)
	tg.POST("", api.createTeacher)
	tg.DELETE("/:id", api.destroyTeacher)

	rg := g.Group("/records")
	rg.GET("", api.queryRecords)
	rg.POST("", api.logCompliance)
	rg.GET("/logged", api.hasLogged)

	sg := g.Group("/stats")
	sg.GET("", api.dashboard)
	sg.GET("/teachers", api.statsByTeacher)
	sg.GET("/courses", api.statsByCourse)
	sg.GET("/subjects", api.statsBySubject)
	sg.GET("/weekly", api.weeklyTrend)

	pg := g.Group("/reports")
	pg.GET("/csv", api.generalCSV)
	pg.GET("/csv/:teacherId", api.teacherCSV)
	pg.GET("/xlsx", api.workbook)
	pg.POST("/email", api.emailWorkbook)

	bg := g.Group("/backup")
	bg.GET("", api.exportBackup)
	bg.POST("", api.importBackup)

	g.GET("/events", api.events)
}

// snapshot returns the request owner and their current data.
func (api *complianceApi) snapshot(ctx echo.Context) (core.Owner, *compliance.Snapshot, error) {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return owner, nil, err
	}
	snap, err := api.svc.Snapshot(ctx.Request().Context(), owner.ID)
	if err != nil {
		return owner, nil, errors.Wrap(err, "taking snapshot")
	}
	return owner, snap, nil
}

// Handlers

func (api *complianceApi) catalog(ctx echo.Context) error {
	catalog := api.svc.Catalog()
	return ctx.JSON(http.StatusOK, echo.Map{
		"courses":  catalog.Courses,
		"subjects": catalog.Subjects,
		"timeZone": api.svc.Location().String(),
		"statuses": compliance.Statuses,
	})
}

func (api *complianceApi) queryTeachers(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	teachers, err := api.svc.ListTeachers(ctx.Request().Context(), owner.ID)
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *complianceApi) createTeacher(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	var data compliance.NewTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	teacher, err := api.svc.AddTeacher(ctx.Request().Context(), owner.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding teacher")
	}
	return ctx.JSON(http.StatusCreated, teacher)
}

func (api *complianceApi) destroyTeacher(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTeacher(ctx.Request().Context(), owner.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *complianceApi) queryRecords(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx, defaultRecordOrdering)
	records, err := api.svc.ListRecords(ctx.Request().Context(), owner.ID, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *complianceApi) logCompliance(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	var data compliance.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	logged, err := api.svc.LogCompliance(ctx.Request().Context(), owner.ID, data)
	if err != nil {
		return errors.Wrap(err, "logging compliance")
	}
	recordsLogged.WithLabelValues(string(logged.Status), strconv.FormatBool(logged.Duplicate)).Inc()
	return ctx.JSON(http.StatusCreated, logged)
}

func (api *complianceApi) hasLogged(ctx echo.Context) error {
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}
	var query compliance.LoggedQuery
	if err = ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to LoggedQuery")
	}
	logged, err := api.svc.HasLogged(ctx.Request().Context(), owner.ID, query)
	if err != nil {
		return errors.Wrap(err, "querying logged records")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"logged": logged})
}

func (api *complianceApi) dashboard(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap.Dashboard(api.svc.Catalog()))
}

func (api *complianceApi) statsByTeacher(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, compliance.ByTeacher(snap.Teachers, snap.Records))
}

func (api *complianceApi) statsByCourse(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, compliance.ByCourse(snap.Records, api.svc.Catalog().Courses))
}

func (api *complianceApi) statsBySubject(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, compliance.BySubject(snap.Records, api.svc.Catalog().Subjects))
}

func (api *complianceApi) weeklyTrend(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, compliance.WeeklyTrend(snap.Records, snap.Location()))
}
