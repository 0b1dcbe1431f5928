package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_StampsHeaders(t *testing.T) {
	collector := NewCollector()

	handler := Middleware(collector, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content/quizzes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderResponseTime))
	assert.True(t, strings.HasSuffix(rec.Header().Get(HeaderResponseTime), "ms"))
}

func TestMiddleware_PreservesInboundRequestID(t *testing.T) {
	handler := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestMiddleware_HeadersOnErrorResponses(t *testing.T) {
	handler := Middleware(NewCollector(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/x", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderResponseTime))
}

func TestCollector_Exposition(t *testing.T) {
	collector := NewCollector()
	collector.ObserveProxy("content", "ok", 0)
	collector.ObserveProxy("content", "timeout", 0)
	collector.SetBreakerState("content", 1)
	collector.BreakerOpened("content")
	collector.RateLimited("login")
	collector.WSConnected(1)
	collector.WSMessage("chat")

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `gateway_proxy_requests_total{outcome="ok",service="content"} 1`)
	assert.Contains(t, text, `gateway_proxy_requests_total{outcome="timeout",service="content"} 1`)
	assert.Contains(t, text, `gateway_breaker_state{service="content"} 1`)
	assert.Contains(t, text, `gateway_breaker_opens_total{service="content"} 1`)
	assert.Contains(t, text, `gateway_rate_limited_total{scope="login"} 1`)
	assert.Contains(t, text, `gateway_ws_connections 1`)
	assert.Contains(t, text, `gateway_ws_messages_total{type="chat"} 1`)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.ObserveHTTP(http.MethodGet, 200, 0)
	c.ObserveProxy("auth", "ok", 0)
	c.RateLimited("default")
	c.SetBreakerState("auth", 0)
	c.BreakerOpened("auth")
	c.WSConnected(-1)
	c.WSMessage("typing")
	c.WSSendError()
}
