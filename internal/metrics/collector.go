// Package metrics exposes Prometheus instrumentation for the gateway:
// proxied request outcomes, circuit breaker state, rate limiting, and
// WebSocket connection counts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every gateway metric on a private registry. A nil
// *Collector is valid and records nothing, so components can run with
// metrics disabled.
type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	proxyRequests *prometheus.CounterVec
	proxyLatency  *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	breakerOpens  *prometheus.CounterVec
	wsConnections prometheus.Gauge
	wsMessages    *prometheus.CounterVec
	wsSendErrors  prometheus.Counter
}

// NewCollector creates and registers all gateway metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Inbound HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "Inbound HTTP request latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 3, 5, 10},
			},
			[]string{"method"},
		),
		proxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_proxy_requests_total",
				Help: "Proxied requests by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		proxyLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_proxy_request_duration_seconds",
				Help:    "Proxied request latency in seconds by service",
				Buckets: []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 3, 5, 10},
			},
			[]string{"service"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_limited_total",
				Help: "Requests rejected by the rate limiter, by scope",
			},
			[]string{"scope"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_breaker_state",
				Help: "Circuit breaker state per service (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		breakerOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_breaker_opens_total",
				Help: "Circuit breaker open transitions per service",
			},
			[]string{"service"},
		),
		wsConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_ws_connections",
				Help: "Currently open WebSocket connections",
			},
		),
		wsMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ws_messages_total",
				Help: "Inbound WebSocket frames by message type",
			},
			[]string{"type"},
		),
		wsSendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_ws_send_errors_total",
				Help: "Failed WebSocket deliveries",
			},
		),
	}

	c.registry.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.proxyRequests,
		c.proxyLatency,
		c.rateLimited,
		c.breakerState,
		c.breakerOpens,
		c.wsConnections,
		c.wsMessages,
		c.wsSendErrors,
	)

	return c
}

// Handler returns the Prometheus text exposition handler
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed inbound request
func (c *Collector) ObserveHTTP(method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, statusClass(status)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveProxy records one proxied call with its outcome ("ok",
// "circuit_open", "timeout", "unavailable", "error")
func (c *Collector) ObserveProxy(service, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.proxyRequests.WithLabelValues(service, outcome).Inc()
	c.proxyLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RateLimited counts a rejected request for the given scope
func (c *Collector) RateLimited(scope string) {
	if c == nil {
		return
	}
	c.rateLimited.WithLabelValues(scope).Inc()
}

// SetBreakerState records the current breaker state for a service
func (c *Collector) SetBreakerState(service string, state int) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(service).Set(float64(state))
}

// BreakerOpened counts an open transition for a service
func (c *Collector) BreakerOpened(service string) {
	if c == nil {
		return
	}
	c.breakerOpens.WithLabelValues(service).Inc()
}

// WSConnected adjusts the open connection gauge by delta
func (c *Collector) WSConnected(delta int) {
	if c == nil {
		return
	}
	c.wsConnections.Add(float64(delta))
}

// WSMessage counts an inbound frame by type
func (c *Collector) WSMessage(msgType string) {
	if c == nil {
		return
	}
	c.wsMessages.WithLabelValues(msgType).Inc()
}

// WSSendError counts a failed delivery
func (c *Collector) WSSendError() {
	if c == nil {
		return
	}
	c.wsSendErrors.Inc()
}

func statusClass(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
