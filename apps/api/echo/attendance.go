package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core/attendance"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.POST("", api.save)
	ag.GET("/student/:id/report", api.studentReport)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.PATCH("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := attendance.QueryFilter{
		BatchID: ctx.QueryParam("batch_id"),
		Date:    dateParam(ctx, "date"),
		Month:   monthParam(ctx, "month"),
	}
	sheets, err := api.svc.Query(ctx.Request().Context(), ownerID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"count": len(sheets), "attendances": sheets})
}

// save creates the sheet of a batch & date, or replaces its records when it already exists.
func (api *attendanceApi) save(ctx echo.Context) error {
	var data attendance.NewSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSheet")
	}

	sheet, created, err := api.svc.UpsertSheet(ctx.Request().Context(), ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return respond(ctx, code, "Attendance saved successfully", echo.Map{"attendance": sheet})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	sheet, err := api.svc.Get(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"attendance": sheet})
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSheet")
	}

	sheet, err := api.svc.Update(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return respond(ctx, http.StatusOK, "Attendance updated successfully", echo.Map{"attendance": sheet})
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ownerID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return respond(ctx, http.StatusOK, "Attendance deleted successfully", nil)
}

func (api *attendanceApi) studentReport(ctx echo.Context) error {
	report, err := api.svc.StudentReport(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), ctx.QueryParam("month"))
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	data := echo.Map{"student": report.Student, "report": report.Report, "records": report.Records}
	if report.Month != "" {
		data["month"] = report.Month
	}
	return respond(ctx, http.StatusOK, "", data)
}
