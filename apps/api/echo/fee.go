package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core/fee"
)

type feeApi struct {
	ledger *fee.Ledger
}

func registerFeeAPI(g *echo.Group, ledger *fee.Ledger) {
	api := feeApi{ledger: ledger}

	fg := g.Group("/fees")
	fg.GET("", api.query)
	fg.POST("", api.create)
	fg.GET("/analytics", api.analytics)
	fg.GET("/student/:id/status", api.studentStatus)
	fg.GET("/batch/:id/overview", api.batchOverview)
	fg.GET("/:id", api.retrieve)
	fg.DELETE("/:id", api.destroy)
}

func (api *feeApi) query(ctx echo.Context) error {
	filter := fee.QueryFilter{
		StudentID: ctx.QueryParam("student_id"),
		BatchID:   ctx.QueryParam("batch_id"),
		Month:     monthParam(ctx, "month"),
	}
	list, err := api.ledger.QueryPayments(ctx.Request().Context(), ownerID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"count":           list.Count,
		"total_collected": list.TotalCollected,
		"payments":        list.Payments,
	})
}

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}

	p, bal, err := api.ledger.RecordPayment(ctx.Request().Context(), ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return respond(ctx, http.StatusCreated, "Fee payment recorded successfully", echo.Map{
		"payment":             p,
		"student_fees_status": bal,
	})
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	p, err := api.ledger.GetPayment(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"payment": p})
}

// destroy deletes the payment and takes its amount back off the student's fees_paid.
func (api *feeApi) destroy(ctx echo.Context) error {
	bal, err := api.ledger.ReversePayment(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reversing payment")
	}
	return respond(ctx, http.StatusOK, "Fee payment deleted and reversed successfully", echo.Map{
		"student_fees_status": bal,
	})
}

func (api *feeApi) studentStatus(ctx echo.Context) error {
	status, err := api.ledger.GetStudentStatus(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student fee status")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"student":         status.Student,
		"fee_status":      status.FeeStatus,
		"payment_history": status.PaymentHistory,
	})
}

func (api *feeApi) batchOverview(ctx echo.Context) error {
	ov, err := api.ledger.GetBatchOverview(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting batch fee overview")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"batch":      ov.Batch,
		"overview":   ov.Overview,
		"defaulters": ov.Defaulters,
	})
}

func (api *feeApi) analytics(ctx echo.Context) error {
	a, err := api.ledger.GetOwnerAnalytics(ctx.Request().Context(), ownerID(ctx), ctx.QueryParam("month"))
	if err != nil {
		return errors.Wrap(err, "computing fee analytics")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"analytics": a})
}
