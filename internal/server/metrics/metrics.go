// Package metrics exposes Prometheus collectors for the authentication
// server. All collectors register with a private registry so the /metrics
// endpoint serves only our own series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login result label values.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultLocked   = "locked"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	loginTotal         *prometheus.CounterVec
	registrationsTotal prometheus.Counter
	rateLimitedTotal   prometheus.Counter
	activeSessions     prometheus.Gauge
	sessionsSweptTotal prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"result"},
		),
		registrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "registrations_total",
				Help:      "Successfully created accounts",
			},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "authgate",
				Name:      "active_sessions",
				Help:      "Sessions currently tracked by the registry",
			},
		),
		sessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "sessions_swept_total",
				Help:      "Expired sessions removed by the background sweep",
			},
		),
	}

	m.registry.MustRegister(
		m.loginTotal,
		m.registrationsTotal,
		m.rateLimitedTotal,
		m.activeSessions,
		m.sessionsSweptTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLogin(result string) {
	m.loginTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRegistrations() {
	m.registrationsTotal.Inc()
}

func (m *Metrics) IncRateLimited() {
	m.rateLimitedTotal.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) AddSessionsSwept(n int) {
	m.sessionsSweptTotal.Add(float64(n))
}
