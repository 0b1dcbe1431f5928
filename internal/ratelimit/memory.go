package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
)

// window is one key's counter, valid within [start, start+quota.Window())
type window struct {
	count int
	start time.Time
}

// MemoryLimiter is the in-process fallback when no shared store is
// configured. Fixed windows with lazy reset on next access; weaker than the
// Redis limiter under horizontal scaling since each instance counts alone.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now func() time.Time
}

// NewMemoryLimiter creates an in-process window limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check implements interfaces.Limiter
func (m *MemoryLimiter) Check(_ context.Context, key string, quota interfaces.Quota) (interfaces.Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= quota.Window() {
		w = &window{start: now}
		m.windows[key] = w
	}

	w.count++

	maxCount := quota.Max()
	if w.count > maxCount {
		return interfaces.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: quota.Window() - now.Sub(w.start),
		}, nil
	}

	return interfaces.Decision{
		Allowed:   true,
		Remaining: maxCount - w.count,
	}, nil
}

// Reset implements interfaces.Limiter
func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}

// Prune drops windows whose quota period has fully elapsed. Called
// periodically so abandoned keys do not accumulate.
func (m *MemoryLimiter) Prune(olderThan time.Duration) int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for key, w := range m.windows {
		if now.Sub(w.start) >= olderThan {
			delete(m.windows, key)
			pruned++
		}
	}
	return pruned
}

// StartCleanup runs Prune on an interval until stop is closed
func (m *MemoryLimiter) StartCleanup(interval, olderThan time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune(olderThan)
		case <-stop:
			return
		}
	}
}

var _ interfaces.Limiter = (*MemoryLimiter)(nil)
