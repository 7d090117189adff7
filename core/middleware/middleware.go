package middleware

import (
	"net/http"
	"strings"

	"schedshare/core/errors"
	"schedshare/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user_id"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the bearer token and stores the user ID on the
// request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized,
					errors.NewAppError(errors.ErrMissingAuthorizationHeader, "missing Authorization header", nil))
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				return c.JSON(http.StatusUnauthorized,
					errors.NewAppError(errors.ErrInvalidTokenFormat, "expected Bearer token", nil))
			}

			data, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized,
					errors.NewAppError(errors.ErrUnauthorized, "invalid or expired token", err))
			}

			c.Set(userIDContextKey, data.UserID)
			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated user ID set by AuthMiddleware.
func UserIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(userIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "no authenticated user", nil)
	}
	return id, nil
}
