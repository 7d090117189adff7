package controller

import (
	"schedshare/core/controller"
	"schedshare/core/errors"
	"schedshare/core/middleware"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/service"

	"github.com/labstack/echo/v4"
)

type SyncController struct {
	controller.BaseController
	service service.SyncService
}

func NewSyncController(service service.SyncService) *SyncController {
	return &SyncController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// RunSync triggers a sync run for the current user
// POST /api/v1/private/sync/run
func (c *SyncController) RunSync(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	summary, err := c.service.RunSync(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, summary, "Sync completed")
}

// GetStatus returns the current sync configuration and last run time
// GET /api/v1/private/sync/status
func (c *SyncController) GetStatus(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	status, err := c.service.GetStatus(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, status, "")
}

// UpdateSettings partially updates sync settings
// PUT /api/v1/private/sync/settings
func (c *SyncController) UpdateSettings(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.SyncSettingsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid settings payload")
	}

	status, err := c.service.UpdateSettings(ctx.Request().Context(), userID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, status, "Settings updated")
}

// Disconnect removes the sync connection and all event mappings
// DELETE /api/v1/private/sync/connection
func (c *SyncController) Disconnect(ctx echo.Context) error {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	if err := c.service.Disconnect(ctx.Request().Context(), userID); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Disconnected successfully")
}
