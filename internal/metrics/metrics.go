// Package metrics holds the Prometheus collectors for the API client and
// the MCP tool server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes
const (
	RefreshOK      = "ok"
	RefreshFailed  = "failed"
	RefreshSkipped = "skipped"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	sessionExpired prometheus.Counter
	replays        prometheus.Counter
	toolCalls      *prometheus.CounterVec
}

// New creates collectors registered on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finfront",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend requests by method and response status.",
		}, []string{"method", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finfront",
			Subsystem: "api",
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"result"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finfront",
			Subsystem: "api",
			Name:      "sessions_expired_total",
			Help:      "Sessions ended after an unrecoverable authentication failure.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finfront",
			Subsystem: "api",
			Name:      "request_replays_total",
			Help:      "Requests replayed after a token refresh.",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finfront",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "result"}),
	}
	reg.MustRegister(m.requests, m.refreshes, m.sessionExpired, m.replays, m.toolCalls)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts a completed request. status 0 means no response.
func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
}

// ObserveRefresh counts a refresh outcome
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// ObserveReplay counts a replayed request
func (m *Metrics) ObserveReplay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

// ObserveSessionExpired counts an ended session
func (m *Metrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}

// ObserveToolCall counts an MCP tool call
func (m *Metrics) ObserveToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.toolCalls.WithLabelValues(tool, result).Inc()
}
