package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core/exam"
)

type BulkMarksRequest struct {
	Marks []exam.NewMark `json:"marks"`
}

type examApi struct {
	svc *exam.Service
}

func registerExamAPI(g *echo.Group, svc *exam.Service) {
	api := examApi{svc: svc}

	tg := g.Group("/tests")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/student/:id/report", api.studentReport)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.PATCH("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/marks/bulk", api.recordMarks)
	tg.GET("/:id/marks", api.marks)
}

func (api *examApi) query(ctx echo.Context) error {
	var filter exam.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	tests, err := api.svc.Query(ctx.Request().Context(), ownerID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"count": len(tests), "tests": tests})
}

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}

	t, err := api.svc.Create(ctx.Request().Context(), ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return respond(ctx, http.StatusCreated, "Test created successfully", echo.Map{"test": t})
}

func (api *examApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.Get(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting test")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"test": t})
}

func (api *examApi) update(ctx echo.Context) error {
	var data exam.UpdateTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTest")
	}

	t, err := api.svc.Update(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating test")
	}
	return respond(ctx, http.StatusOK, "Test updated successfully", echo.Map{"test": t})
}

func (api *examApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ownerID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting test")
	}
	return respond(ctx, http.StatusOK, "Test deleted successfully", nil)
}

// recordMarks answers 207 when some entries failed; saved entries are kept either way.
func (api *examApi) recordMarks(ctx echo.Context) error {
	var data BulkMarksRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarksRequest")
	}

	res, err := api.svc.RecordMarksBulk(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), data.Marks)
	if err != nil {
		return errors.Wrap(err, "recording marks")
	}
	code := http.StatusOK
	if !res.Success {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api *examApi) marks(ctx echo.Context) error {
	stats, err := api.svc.Statistics(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing test statistics")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"test":       stats.Test,
		"statistics": stats.Statistics,
		"marks":      stats.Marks,
	})
}

func (api *examApi) studentReport(ctx echo.Context) error {
	report, err := api.svc.StudentReport(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building test report")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"student": report.Student,
		"summary": report.Summary,
		"tests":   report.Tests,
	})
}
