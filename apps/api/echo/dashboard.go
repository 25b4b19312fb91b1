package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core/dashboard"
)

type dashboardApi struct {
	svc *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, svc *dashboard.Service) {
	api := dashboardApi{svc: svc}

	dg := g.Group("/dashboard")
	dg.GET("/overview", api.overview)
	dg.GET("/analytics", api.analytics)
}

func (api *dashboardApi) overview(ctx echo.Context) error {
	ov, err := api.svc.Overview(ctx.Request().Context(), ownerID(ctx))
	if err != nil {
		return errors.Wrap(err, "building dashboard overview")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"overview":          ov.Overview,
		"defaulters":        ov.Defaulters,
		"recent_activities": ov.RecentActivities,
	})
}

func (api *dashboardApi) analytics(ctx echo.Context) error {
	pa, err := api.svc.Analytics(ctx.Request().Context(), ownerID(ctx), ctx.QueryParam("period"))
	if err != nil {
		return errors.Wrap(err, "building dashboard analytics")
	}
	return respond(ctx, http.StatusOK, "", echo.Map{
		"period":    pa.Period,
		"since":     pa.Since,
		"analytics": pa.Analytics,
	})
}
