package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	DecisionsTotal           *prometheus.CounterVec
	ConfigurationErrorsTotal *prometheus.CounterVec
	HTTPRequestsTotal        *prometheus.CounterVec
	HTTPRequestDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posadmin_authorization_decisions_total",
				Help: "Authorization checks by role, module, action and outcome",
			},
			[]string{"role", "module", "action", "allowed"},
		),
		ConfigurationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posadmin_permission_configuration_errors_total",
				Help: "Permission documents that could not be resolved for a role",
			},
			[]string{"kind"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posadmin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posadmin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.DecisionsTotal,
		m.ConfigurationErrorsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) RecordDecision(role, module, action string, allowed bool) {
	m.DecisionsTotal.WithLabelValues(role, module, action, strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) RecordConfigurationError(kind string) {
	m.ConfigurationErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
