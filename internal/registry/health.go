package registry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
)

// ServiceHealth is the live status of one registered backend
type ServiceHealth struct {
	Name      string `json:"name"`
	BaseURL   string `json:"base_url"`
	Healthy   bool   `json:"healthy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthChecker probes each registered service's /health endpoint
type HealthChecker struct {
	registry interfaces.Registry
	client   *http.Client
	logger   interfaces.Logger
}

// NewHealthChecker creates a checker with a bounded per-probe timeout
func NewHealthChecker(reg interfaces.Registry, timeout time.Duration, logger interfaces.Logger) *HealthChecker {
	return &HealthChecker{
		registry: reg,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// CheckAll probes every registered service concurrently and returns the
// results in registry order
func (h *HealthChecker) CheckAll(ctx context.Context) []ServiceHealth {
	endpoints := h.registry.All()
	results := make([]ServiceHealth, len(endpoints))

	var wg sync.WaitGroup
	for i, ep := range endpoints {
		wg.Add(1)
		go func(i int, ep interfaces.Endpoint) {
			defer wg.Done()
			results[i] = h.check(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	return results
}

func (h *HealthChecker) check(ctx context.Context, ep interfaces.Endpoint) ServiceHealth {
	result := ServiceHealth{
		Name:    ep.Name,
		BaseURL: ep.BaseURL,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+"/health", nil)
	if err != nil {
		result.Status = "unreachable"
		return result
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Status = "unreachable"
		if h.logger != nil {
			h.logger.Warn("Service health probe failed", map[string]any{
				"service": ep.Name,
				"error":   err.Error(),
			})
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Healthy = true
		result.Status = "healthy"
	} else {
		result.Status = "unhealthy"
	}

	return result
}
