package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

type logEntry struct {
	level string
	ctx   context.Context
	msg   string
	args  []any
}

type mockLogger struct {
	entries []logEntry
}

func (m *mockLogger) record(level string, ctx context.Context, msg string, args []any) {
	m.entries = append(m.entries, logEntry{level: level, ctx: ctx, msg: msg, args: args})
}

func (m *mockLogger) Info(ctx context.Context, msg string, args ...any) {
	m.record("info", ctx, msg, args)
}

func (m *mockLogger) Error(ctx context.Context, msg string, args ...any) {
	m.record("error", ctx, msg, args)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any) {
	m.record("warn", ctx, msg, args)
}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {
	m.record("debug", ctx, msg, args)
}

func (m *mockLogger) last(t *testing.T) logEntry {
	t.Helper()
	if len(m.entries) == 0 {
		t.Fatalf("expected a log entry")
	}
	return m.entries[len(m.entries)-1]
}

func argValue(args []any, key string) (any, bool) {
	for i := 0; i < len(args)-1; i += 2 {
		if k, ok := args[i].(string); ok && k == key {
			return args[i+1], true
		}
	}
	return nil, false
}

func TestRequestLogger_LogsExpectedFields(t *testing.T) {
	logger := &mockLogger{}
	mw := RequestLogger(logger)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/organizations/org-1/permissions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/organizations/:id/permissions")
	c.Set("user_id", "u-admin")

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := logger.last(t)
	if entry.msg != "http request" || entry.level != "info" {
		t.Fatalf("unexpected log entry: %s %s", entry.level, entry.msg)
	}
	for _, expected := range []string{"method", "path", "route_pattern", "status", "duration", "request_id", "user_id"} {
		if _, ok := argValue(entry.args, expected); !ok {
			t.Fatalf("missing expected key %s in args: %v", expected, entry.args)
		}
	}
	if route, _ := argValue(entry.args, "route_pattern"); route != "/organizations/:id/permissions" {
		t.Fatalf("unexpected route pattern: %v", route)
	}
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusForbidden, "warn"},
		{http.StatusConflict, "warn"},
		{http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		logger := &mockLogger{}
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		h := RequestLogger(logger)(func(c echo.Context) error {
			return c.NoContent(tc.status)
		})
		if err := h(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := logger.last(t).level; got != tc.level {
			t.Fatalf("status %d logged at %s, want %s", tc.status, got, tc.level)
		}
	}
}

func TestRequestLogger_ResolvesStatusOfReturnedErrors(t *testing.T) {
	logger := &mockLogger{}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := RequestLogger(logger)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	if err := h(c); err == nil {
		t.Fatalf("expected the handler error to propagate")
	}

	entry := logger.last(t)
	if status, _ := argValue(entry.args, "status"); status != http.StatusNotFound {
		t.Fatalf("unexpected status: %v", status)
	}
	if _, ok := argValue(entry.args, "error"); !ok {
		t.Fatalf("expected error key in args: %v", entry.args)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected response code: %d", rec.Code)
	}
}

func TestRequestLogger_PassesContextWithXRaySegment(t *testing.T) {
	logger := &mockLogger{}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/organizations/org-1/permissions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := XRayMiddleware("posadmin-test")(RequestLogger(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}))

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if xray.GetSegment(logger.last(t).ctx) == nil {
		t.Fatalf("expected xray segment in logged context")
	}
}
