package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestMetrics records every request under its route pattern so path
// parameters do not explode label cardinality.
func RequestMetrics(recorder HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			recorder.RecordHTTPRequest(c.Request().Method, route, c.Response().Status, time.Since(started))
			return err
		}
	}
}
