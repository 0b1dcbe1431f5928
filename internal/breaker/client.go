package breaker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/metrics"
)

// Client performs outbound HTTP calls to registered services, one circuit
// per service. Safe for concurrent use.
type Client struct {
	registry  interfaces.Registry
	http      *http.Client
	threshold int
	recovery  time.Duration
	logger    interfaces.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	circuits map[string]*circuit

	now func() time.Time
}

// NewClient creates a breaker client. timeout is the hard ceiling for any
// single upstream call; per-call contexts may shorten it further.
func NewClient(reg interfaces.Registry, cfg interfaces.BreakerConfig, timeout time.Duration, logger interfaces.Logger, collector *metrics.Collector) *Client {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}
	recovery := time.Duration(cfg.RecoveryTimeoutSeconds) * time.Second
	if recovery <= 0 {
		recovery = 30 * time.Second
	}

	return &Client{
		registry:  reg,
		http:      &http.Client{Timeout: timeout},
		threshold: threshold,
		recovery:  recovery,
		logger:    logger,
		collector: collector,
		circuits:  make(map[string]*circuit),
		now:       time.Now,
	}
}

// Do calls method {base}/{path}?{query} on the named service. The returned
// response body is the caller's to close. Failures are one of the package
// sentinel errors, inspectable with errors.Is.
func (c *Client) Do(ctx context.Context, service, method, path string, query url.Values, header http.Header, body io.Reader) (*http.Response, error) {
	ep, ok := c.registry.Lookup(service)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, service)
	}

	cir := c.circuit(service)
	trial, err := cir.allow(c.recovery, c.now())
	if err != nil {
		c.collector.ObserveProxy(service, "circuit_open", 0)
		return nil, fmt.Errorf("%w: service %q shedding load", ErrCircuitOpen, service)
	}
	c.publishState(service, cir)

	target := ep.BaseURL
	if path != "" {
		target += "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		if trial {
			cir.release()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	for k, vv := range header {
		req.Header[k] = vv
	}

	start := c.now()
	resp, err := c.http.Do(req)
	duration := c.now().Sub(start)

	if err != nil {
		// A caller-cancelled request says nothing about upstream health.
		// A cancelled trial must hand its reservation back or the circuit
		// would shed forever with the probe flag stuck.
		if errors.Is(err, context.Canceled) {
			if trial {
				cir.release()
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		kind := classify(err)
		opened := cir.failure(c.threshold, c.now())
		c.collector.ObserveProxy(service, outcome(kind), duration)
		c.publishState(service, cir)

		if opened {
			c.collector.BreakerOpened(service)
			if c.logger != nil {
				c.logger.Warn("Circuit opened", map[string]any{
					"service": service,
					"error":   err.Error(),
				})
			}
		}

		return nil, fmt.Errorf("%w: %v", kind, err)
	}

	if closed := cir.success(); closed {
		if c.logger != nil {
			c.logger.Info("Circuit closed", map[string]any{"service": service})
		}
	}
	c.collector.ObserveProxy(service, "ok", duration)
	c.publishState(service, cir)

	return resp, nil
}

// State returns the current circuit state for a service
func (c *Client) State(service string) State {
	state, _ := c.circuit(service).snapshot()
	return state
}

// CircuitSnapshot is one service's breaker state for status reporting
type CircuitSnapshot struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Snapshot reports the breaker state of every service that has been called
func (c *Client) Snapshot() map[string]CircuitSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]CircuitSnapshot, len(c.circuits))
	for name, cir := range c.circuits {
		state, failures := cir.snapshot()
		out[name] = CircuitSnapshot{State: state.String(), Failures: failures}
	}
	return out
}

func (c *Client) circuit(service string) *circuit {
	c.mu.Lock()
	defer c.mu.Unlock()

	cir, ok := c.circuits[service]
	if !ok {
		cir = &circuit{}
		c.circuits[service] = cir
	}
	return cir
}

func (c *Client) publishState(service string, cir *circuit) {
	state, _ := cir.snapshot()
	c.collector.SetBreakerState(service, int(state))
}

// classify maps a transport error onto the failure taxonomy
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUpstreamTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrUpstreamTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return ErrUpstreamUnavailable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrUpstreamUnavailable
	}

	return ErrUpstream
}

func outcome(kind error) string {
	switch {
	case errors.Is(kind, ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(kind, ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
