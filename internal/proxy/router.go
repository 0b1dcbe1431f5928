// Package proxy forwards inbound /api/v1/{service}/{rest} requests to the
// backend service named in the path, through the circuit breaker client.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campushub/gateway/internal/auth"
	"github.com/campushub/gateway/internal/breaker"
	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/metrics"
)

// apiPrefix is the generic proxy mount point
const apiPrefix = "/api/v1/"

// hopHeaders must not be forwarded in either direction
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Router resolves the service segment of the request path and relays the
// request through the breaker client, mapping call failures onto gateway
// status codes
type Router struct {
	client  *breaker.Client
	logger  interfaces.Logger
	timeout time.Duration

	// strictBody rejects malformed JSON with 400 instead of forwarding
	// the request without a body
	strictBody bool
	maxBody    int64
}

// NewRouter creates the proxy router
func NewRouter(client *breaker.Client, cfg interfaces.ProxyConfig, logger interfaces.Logger) *Router {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}

	return &Router{
		client:     client,
		logger:     logger,
		timeout:    timeout,
		strictBody: cfg.StrictBody,
		maxBody:    maxBody,
	}
}

// ServeHTTP implements http.Handler
func (p *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	service, rest, ok := SplitServicePath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	body, ok := p.requestBody(w, r)
	if !ok {
		return
	}

	header := outboundHeaders(r)
	auth.InjectHeaders(header, auth.IdentityFrom(r.Context()))

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	resp, err := p.client.Do(ctx, service, r.Method, rest, r.URL.Query(), header, body)
	if err != nil {
		p.writeCallError(w, r, service, err)
		return
	}
	defer resp.Body.Close()

	relayResponse(w, resp)
}

// requestBody prepares the forwarded body. Only create/update methods carry
// one; malformed JSON either aborts with 400 (strict) or strips the body
// (lenient), a documented configuration choice.
func (p *Router) requestBody(w http.ResponseWriter, r *http.Request) (io.Reader, bool) {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, true
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, p.maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if int64(len(raw)) > p.maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	if len(raw) == 0 {
		return nil, true
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && !json.Valid(raw) {
		if p.strictBody {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return nil, false
		}
		if p.logger != nil {
			p.logger.Warn("Stripping malformed JSON body", map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
		}
		return nil, true
	}

	return bytes.NewReader(raw), true
}

func (p *Router) writeCallError(w http.ResponseWriter, r *http.Request, service string, err error) {
	status, detail := MapStatus(err)

	if p.logger != nil {
		p.logger.Warn("Proxy call failed", map[string]any{
			"service": service,
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  status,
			"error":   err.Error(),
		})
	}

	// The response body never carries upstream error text
	writeError(w, status, detail)
}

// SplitServicePath extracts the service segment and the downstream path
// suffix from an /api/v1/{service}/{rest...} path
func SplitServicePath(path string) (service, rest string, ok bool) {
	if !strings.HasPrefix(path, apiPrefix) {
		return "", "", false
	}

	trimmed := strings.TrimPrefix(path, apiPrefix)
	service, rest, _ = strings.Cut(trimmed, "/")
	if service == "" {
		return "", "", false
	}
	return service, rest, true
}

// MapStatus converts a breaker failure into the gateway's client-facing
// status code and generic detail string
func MapStatus(err error) (int, string) {
	switch {
	case errors.Is(err, breaker.ErrServiceNotFound):
		return http.StatusNotFound, "unknown service"
	case errors.Is(err, breaker.ErrCircuitOpen), errors.Is(err, breaker.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	case errors.Is(err, breaker.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "upstream timeout"
	default:
		return http.StatusInternalServerError, "internal gateway error"
	}
}

// outboundHeaders copies the inbound headers minus hop-by-hop fields. The
// Host header is carried on the request struct, so the downstream target's
// own host applies automatically.
func outboundHeaders(r *http.Request) http.Header {
	out := make(http.Header, len(r.Header))
	for k, vv := range r.Header {
		out[k] = append([]string(nil), vv...)
	}
	for _, h := range hopHeaders {
		out.Del(h)
	}
	out.Del("Host")
	return out
}

// relayResponse copies the downstream status, headers, and body verbatim.
// Gateway-owned headers are skipped so a downstream echoing them cannot
// duplicate the values the gateway already stamped.
func relayResponse(w http.ResponseWriter, resp *http.Response) {
	for k, vv := range resp.Header {
		if isHopHeader(k) || isGatewayHeader(k) {
			continue
		}
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

func isGatewayHeader(name string) bool {
	return strings.EqualFold(name, metrics.HeaderRequestID) ||
		strings.EqualFold(name, metrics.HeaderResponseTime)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
