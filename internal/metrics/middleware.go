package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/google/uuid"
)

// Header names the gateway stamps on every response
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderResponseTime = "X-Response-Time"
)

// Middleware stamps X-Request-ID and X-Response-Time on every response and
// records request counters and latency. It is the outermost layer of the
// handler chain so error responses carry the headers too.
func Middleware(collector *Collector, logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			rec := &responseRecorder{ResponseWriter: w, start: start, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			collector.ObserveHTTP(r.Method, rec.status, duration)

			if logger != nil {
				logger.Debug("Request completed", map[string]any{
					"request_id": requestID,
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     rec.status,
					"duration":   duration.String(),
				})
			}
		})
	}
}

// responseRecorder captures the status code and injects X-Response-Time
// just before the status line is written, since headers cannot change
// afterwards
type responseRecorder struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.Header().Set(HeaderResponseTime, fmt.Sprintf("%.3fms", float64(time.Since(r.start).Microseconds())/1000))
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// Hijack keeps WebSocket upgrades working through the middleware
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// Flush passes through streaming responses
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
