// Package metrics holds the Prometheus collectors of the chat backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	messagesAppended *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_upstream_requests_total",
				Help: "Total number of upstream LLM requests",
			},
			[]string{"provider", "outcome"}, // outcome: success, error
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "multichat_upstream_request_duration_seconds",
				Help:    "Duration of upstream LLM requests",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),
		messagesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_messages_appended_total",
				Help: "Total number of messages appended to conversation logs",
			},
			[]string{"role"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_http_requests_total",
				Help: "Total number of HTTP requests by route pattern and status class",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.upstreamRequests.WithLabelValues(provider, outcome).Inc()
	m.upstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// MessageAppended records a message written to a conversation log.
func (m *Metrics) MessageAppended(role string) {
	if m == nil {
		return
	}
	m.messagesAppended.WithLabelValues(role).Inc()
}

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// HTTPRequest records a served request. route is the matched route pattern.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = unmatchedRoute
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
