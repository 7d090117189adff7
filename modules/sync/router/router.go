package router

import (
	"schedshare/core/middleware"
	"schedshare/modules/sync/controller"

	"github.com/labstack/echo/v4"
)

type SyncRouter struct {
	controller *controller.SyncController
}

func NewSyncRouter(controller *controller.SyncController) *SyncRouter {
	return &SyncRouter{
		controller: controller,
	}
}

func (r *SyncRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	syncRoutes := v1.Group("/private/sync")
	syncRoutes.Use(mw.AuthMiddleware())

	syncRoutes.POST("/run", r.controller.RunSync)
	syncRoutes.GET("/status", r.controller.GetStatus)
	syncRoutes.PUT("/settings", r.controller.UpdateSettings)
	syncRoutes.DELETE("/connection", r.controller.Disconnect)
}
