// Package breaker wraps outbound calls to backend services with a
// per-service circuit breaker. Only transport-level failures count against
// a circuit; any HTTP response, whatever its status, is a success.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// Call failure taxonomy. Callers map these onto HTTP status codes.
var (
	// ErrServiceNotFound means the service name is not in the registry
	ErrServiceNotFound = errors.New("unknown service")

	// ErrCircuitOpen means the call was shed without a network attempt
	ErrCircuitOpen = errors.New("circuit open")

	// ErrUpstreamTimeout means the upstream did not answer in time
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamUnavailable means the upstream refused or was unreachable
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstream covers any other transport-level failure
	ErrUpstream = errors.New("upstream transport error")
)

// State is the position of a circuit's state machine
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// circuit is the per-service failure state machine. All transitions happen
// under mu so concurrent failing calls cannot lose failure counts.
type circuit struct {
	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	// probing marks the single in-flight HALF_OPEN trial
	probing bool
}

// allow decides whether a call may proceed. It returns ErrCircuitOpen when
// the circuit is shedding load, and trial=true when this call is the one
// HALF_OPEN probe.
func (c *circuit) allow(recovery time.Duration, now time.Time) (trial bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if now.Sub(c.openedAt) < recovery {
			return false, ErrCircuitOpen
		}
		c.state = StateHalfOpen
		c.probing = true
		return true, nil
	case StateHalfOpen:
		if c.probing {
			return false, ErrCircuitOpen
		}
		c.probing = true
		return true, nil
	}
	return false, nil
}

// success resets the failure counter and closes the circuit if it was
// probing. Reports whether a close transition happened.
func (c *circuit) success() (closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = 0
	c.probing = false
	if c.state != StateClosed {
		c.state = StateClosed
		closed = true
	}
	return closed
}

// release gives back a HALF_OPEN trial reservation whose call ended with
// neither a success nor a countable failure, such as a caller-cancelled
// request. The circuit reverts to OPEN with its original openedAt, so the
// next caller may claim a fresh trial.
func (c *circuit) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateHalfOpen && c.probing {
		c.probing = false
		c.state = StateOpen
	}
}

// failure counts a transport failure and opens the circuit when the
// threshold is reached or a HALF_OPEN trial failed. Reports whether an
// open transition happened.
func (c *circuit) failure(threshold int, now time.Time) (opened bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	if c.state == StateHalfOpen || (c.state == StateClosed && c.failures >= threshold) {
		c.state = StateOpen
		c.openedAt = now
		c.probing = false
		opened = true
	}
	return opened
}

// snapshot returns the current state and failure count
func (c *circuit) snapshot() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.failures
}
