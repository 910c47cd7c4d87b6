package lambda

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/labstack/echo/v4"
	"posadmin/internal/ports"
)

type LambdaHandler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// NewLambdaHandler serves API Gateway HTTP API events through the echo router.
func NewLambdaHandler(e *echo.Echo, logger ports.Logger) LambdaHandler {
	adapter := echoadapter.NewV2(e)
	var coldStart sync.Once
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		coldStart.Do(func() {
			logger.Info(ctx, "lambda cold start", "route_key", req.RouteKey)
		})
		resp, err := adapter.ProxyWithContext(ctx, req)
		if err != nil {
			logger.Error(ctx, "lambda proxy failed", "path", req.RawPath, "error", err)
		}
		return resp, err
	}
}
