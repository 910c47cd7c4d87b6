package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens a segment per request and annotates it with the
// matched route and response status.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			c.SetRequest(c.Request().Clone(ctx))

			err := next(c)
			_ = seg.AddAnnotation("route", c.Path())
			_ = seg.AddAnnotation("status", c.Response().Status)
			if orgID := c.Param("id"); orgID != "" {
				_ = seg.AddAnnotation("resource_id", orgID)
			}
			seg.Close(err)
			return err
		}
	}
}
