package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"posadmin/internal/ports"
)

// RequestLogger writes one entry per request. Server errors log at error
// level and client errors at warn level.
func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", status,
				"duration", time.Since(started).String(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if uid, ok := c.Get(userIDKey).(string); ok {
				args = append(args, "user_id", uid)
			}
			if orgID, ok := c.Get("organization_id").(string); ok {
				args = append(args, "organization_id", orgID)
			}
			if err != nil {
				args = append(args, "error", err.Error())
			}

			ctx := c.Request().Context()
			switch {
			case status >= 500:
				logger.Error(ctx, "http request", args...)
			case status >= 400:
				logger.Warn(ctx, "http request", args...)
			default:
				logger.Info(ctx, "http request", args...)
			}
			return err
		}
	}
}
