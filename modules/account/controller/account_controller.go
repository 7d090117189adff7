package controller

import (
	"schedshare/core/controller"
	"schedshare/core/errors"
	"schedshare/core/middleware"
	"schedshare/modules/account/service"

	"github.com/labstack/echo/v4"
)

type AccountController struct {
	controller.BaseController
	service service.LinkService
}

func NewAccountController(service service.LinkService) *AccountController {
	return &AccountController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// LinkGoogle starts the OAuth consent flow
// GET /api/v1/private/account/link/google
func (c *AccountController) LinkGoogle(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	url, err := c.service.AuthURL(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, map[string]string{"auth_url": url}, "")
}

// LinkGoogleCallback completes the OAuth flow
// GET /api/v1/public/account/link/google/callback?state=...&code=...
func (c *AccountController) LinkGoogleCallback(ctx echo.Context) error {
	state := ctx.QueryParam("state")
	code := ctx.QueryParam("code")
	if state == "" || code == "" {
		return c.BadRequest(errors.ErrInvalidInput, "state and code are required")
	}

	if err := c.service.HandleCallback(ctx.Request().Context(), state, code); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Account linked")
}

// UnlinkGoogle deactivates the linked account
// DELETE /api/v1/private/account/link/google
func (c *AccountController) UnlinkGoogle(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	if err := c.service.Unlink(ctx.Request().Context(), userID); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Account unlinked")
}
