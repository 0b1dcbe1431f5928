package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
)

func TestMemoryLimiter_QuotaRoundTrip(t *testing.T) {
	limiter := NewMemoryLimiter()
	base := time.Now()
	now := base
	limiter.now = func() time.Time { return now }

	quota := interfaces.Quota{Requests: 5, WindowSeconds: 60}
	ctx := context.Background()

	// Five requests within the window all succeed
	for i := 0; i < 5; i++ {
		decision, err := limiter.Check(ctx, "1.2.3.4", quota)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
		if decision.Remaining != 5-(i+1) {
			t.Errorf("Request %d: expected remaining %d, got %d", i+1, 5-(i+1), decision.Remaining)
		}
	}

	// The sixth is denied with a retry-after within the window
	decision, err := limiter.Check(ctx, "1.2.3.4", quota)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("Sixth request should be denied")
	}
	if decision.RetryAfter <= 0 || decision.RetryAfter > 60*time.Second {
		t.Errorf("Expected retry-after in (0, 60s], got %s", decision.RetryAfter)
	}

	// After the window fully elapses a new request succeeds
	now = base.Add(61 * time.Second)
	decision, err = limiter.Check(ctx, "1.2.3.4", quota)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("Request after window elapse should be allowed")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	quota := interfaces.Quota{Requests: 1, WindowSeconds: 60}
	ctx := context.Background()

	if d, _ := limiter.Check(ctx, "1.1.1.1", quota); !d.Allowed {
		t.Fatal("First key should be allowed")
	}
	if d, _ := limiter.Check(ctx, "1.1.1.1", quota); d.Allowed {
		t.Fatal("First key should now be exhausted")
	}
	if d, _ := limiter.Check(ctx, "2.2.2.2", quota); !d.Allowed {
		t.Fatal("Second key must not share the first key's window")
	}
}

func TestMemoryLimiter_BurstAllowance(t *testing.T) {
	limiter := NewMemoryLimiter()
	quota := interfaces.Quota{Requests: 2, WindowSeconds: 60, Burst: 1}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d, _ := limiter.Check(ctx, "k", quota); !d.Allowed {
			t.Fatalf("Request %d should fit within quota+burst", i+1)
		}
	}
	if d, _ := limiter.Check(ctx, "k", quota); d.Allowed {
		t.Fatal("Request beyond quota+burst should be denied")
	}
}

func TestMemoryLimiter_Reset(t *testing.T) {
	limiter := NewMemoryLimiter()
	quota := interfaces.Quota{Requests: 1, WindowSeconds: 60}
	ctx := context.Background()

	limiter.Check(ctx, "k", quota)
	if d, _ := limiter.Check(ctx, "k", quota); d.Allowed {
		t.Fatal("Key should be exhausted")
	}

	if err := limiter.Reset(ctx, "k"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d, _ := limiter.Check(ctx, "k", quota); !d.Allowed {
		t.Fatal("Key should be fresh after reset")
	}
}

func TestMemoryLimiter_Prune(t *testing.T) {
	limiter := NewMemoryLimiter()
	base := time.Now()
	now := base
	limiter.now = func() time.Time { return now }

	quota := interfaces.Quota{Requests: 5, WindowSeconds: 60}
	limiter.Check(context.Background(), "old", quota)

	now = base.Add(2 * time.Minute)
	limiter.Check(context.Background(), "fresh", quota)

	if pruned := limiter.Prune(time.Minute); pruned != 1 {
		t.Errorf("Expected 1 pruned window, got %d", pruned)
	}
}

func TestMemoryLimiter_ConcurrentChecksDoNotOvercount(t *testing.T) {
	limiter := NewMemoryLimiter()
	quota := interfaces.Quota{Requests: 50, WindowSeconds: 60}

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := limiter.Check(context.Background(), "shared", quota)
			allowed <- d.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("Expected exactly 50 allowed under concurrency, got %d", count)
	}
}
