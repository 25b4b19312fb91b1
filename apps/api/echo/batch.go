package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core/batch"
)

type batchApi struct {
	svc *batch.Service
}

func registerBatchAPI(g *echo.Group, svc *batch.Service) {
	api := batchApi{svc: svc}

	bg := g.Group("/batches")
	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update)
	bg.PATCH("/:id", api.update)
	bg.DELETE("/:id", api.destroy)
}

func (api *batchApi) query(ctx echo.Context) error {
	batches, err := api.svc.Query(ctx.Request().Context(), ownerID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"count": len(batches), "batches": batches})
}

func (api *batchApi) create(ctx echo.Context) error {
	var data batch.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}

	b, err := api.svc.Create(ctx.Request().Context(), ownerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return respond(ctx, http.StatusCreated, "Batch created successfully", echo.Map{"batch": b})
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting batch")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{"batch": b})
}

func (api *batchApi) update(ctx echo.Context) error {
	var data batch.UpdateBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBatch")
	}

	b, err := api.svc.Update(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return respond(ctx, http.StatusOK, "Batch updated successfully", echo.Map{"batch": b})
}

func (api *batchApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ownerID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return respond(ctx, http.StatusOK, "Batch deleted successfully", nil)
}
