package lambda

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLogger struct {
	infos  int
	errors int
}

func (l *countingLogger) Info(context.Context, string, ...any)  { l.infos++ }
func (l *countingLogger) Error(context.Context, string, ...any) { l.errors++ }
func (l *countingLogger) Warn(context.Context, string, ...any)  {}
func (l *countingLogger) Debug(context.Context, string, ...any) {}

func healthRequest() events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		Version:  "2.0",
		RouteKey: "$default",
		RawPath:  "/healthz",
		Headers:  map[string]string{"host": "api.example.com"},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: "api.example.com",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: http.MethodGet,
				Path:   "/healthz",
			},
		},
	}
}

func TestLambdaHandler_ProxiesToEcho(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	logger := &countingLogger{}
	handler := NewLambdaHandler(e, logger)

	resp, err := handler(context.Background(), healthRequest())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body)

	_, err = handler(context.Background(), healthRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, logger.infos)
	assert.Zero(t, logger.errors)
}
