package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecision(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDecision("counter", "sales", "create", true)
	m.RecordDecision("counter", "sales", "delete", false)
	m.RecordDecision("counter", "sales", "delete", false)

	expected := `
# HELP posadmin_authorization_decisions_total Authorization checks by role, module, action and outcome
# TYPE posadmin_authorization_decisions_total counter
posadmin_authorization_decisions_total{action="create",allowed="true",module="sales",role="counter"} 1
posadmin_authorization_decisions_total{action="delete",allowed="false",module="sales",role="counter"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(m.DecisionsTotal, strings.NewReader(expected)))
}

func TestRecordConfigurationError(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordConfigurationError("cyclic_inheritance")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigurationErrorsTotal.WithLabelValues("cyclic_inheritance")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConfigurationErrorsTotal.WithLabelValues("role_not_configured")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordHTTPRequest(http.MethodGet, "/organizations/:id/permissions", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/organizations/:id/permissions", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordDecision("admin", "billing", "delete", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `posadmin_authorization_decisions_total{action="delete",allowed="false",module="billing",role="admin"} 1`)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)
	assert.Panics(t, func() { New(registry) })
}
