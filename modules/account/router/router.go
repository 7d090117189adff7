package router

import (
	"schedshare/core/middleware"
	"schedshare/modules/account/controller"

	"github.com/labstack/echo/v4"
)

type AccountRouter struct {
	controller *controller.AccountController
}

func NewAccountRouter(controller *controller.AccountController) *AccountRouter {
	return &AccountRouter{
		controller: controller,
	}
}

func (r *AccountRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	linkRoutes := v1.Group("/private/account")
	linkRoutes.Use(mw.AuthMiddleware())
	linkRoutes.GET("/link/google", r.controller.LinkGoogle)
	linkRoutes.DELETE("/link/google", r.controller.UnlinkGoogle)

	// The OAuth provider redirects here; the state parameter carries the
	// user identity.
	v1.GET("/public/account/link/google/callback", r.controller.LinkGoogleCallback)
}
