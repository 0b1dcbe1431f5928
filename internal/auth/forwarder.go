// Package auth resolves bearer tokens into identities by asking the auth
// service, and attaches the result to proxied requests as trusted headers.
// Resolution failures are swallowed: enforcement of "this route requires
// auth" belongs to the backend services, not the gateway.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/utils"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Trusted identity headers injected into proxied requests. Inbound values
// under these names are always stripped first.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
	HeaderTenantID = "X-Tenant-Id"
)

// currentUserPath is the auth service's whoami endpoint
const currentUserPath = "/api/v1/auth/me"

// Forwarder resolves bearer tokens against the auth service with a short
// timeout. An optional TTL cache trades a validation round-trip per request
// for bounded identity staleness.
type Forwarder struct {
	registry    interfaces.Registry
	serviceName string
	client      *http.Client
	logger      interfaces.Logger

	// cache is nil when caching is disabled
	cache *lru.LRU[string, interfaces.Identity]
}

// NewForwarder creates an identity forwarder. A zero CacheTTLSeconds
// disables the cache entirely.
func NewForwarder(reg interfaces.Registry, cfg interfaces.AuthConfig, logger interfaces.Logger) *Forwarder {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	f := &Forwarder{
		registry:    reg,
		serviceName: cfg.Service,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}

	if cfg.CacheTTLSeconds > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = 1024
		}
		f.cache = lru.NewLRU[string, interfaces.Identity](size, nil, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	}

	return f
}

// currentUserResponse is the auth service's whoami body
type currentUserResponse struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id"`
}

// Resolve implements interfaces.IdentityResolver. It returns nil for a
// missing token and for ANY resolution failure: timeout, non-200 status,
// or a malformed body. The request then proceeds as anonymous.
func (f *Forwarder) Resolve(ctx context.Context, token string) *interfaces.Identity {
	if token == "" {
		return nil
	}

	if f.cache != nil {
		if identity, ok := f.cache.Get(token); ok {
			return &identity
		}
	}

	ep, ok := f.registry.Lookup(f.serviceName)
	if !ok {
		if f.logger != nil {
			f.logger.Error("Auth service not registered", map[string]any{
				"service": f.serviceName,
			})
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+currentUserPath, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("Identity resolution failed, proceeding anonymous", map[string]any{
				"token": utils.MaskToken(token),
				"error": err.Error(),
			})
		}
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var body currentUserResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		if f.logger != nil {
			f.logger.Debug("Malformed whoami body, proceeding anonymous", map[string]any{
				"token": utils.MaskToken(token),
				"error": err.Error(),
			})
		}
		return nil
	}
	if body.ID == "" {
		return nil
	}

	identity := interfaces.Identity{
		UserID:   body.ID,
		Role:     body.Role,
		TenantID: body.SchoolID,
	}

	if f.cache != nil {
		f.cache.Add(token, identity)
	}

	return &identity
}

// InjectHeaders strips any inbound identity headers and, when an identity
// was resolved, sets the trusted values. Stripping first prevents clients
// from spoofing identity toward downstream services.
func InjectHeaders(h http.Header, identity *interfaces.Identity) {
	h.Del(HeaderUserID)
	h.Del(HeaderUserRole)
	h.Del(HeaderTenantID)

	if identity == nil {
		return
	}

	h.Set(HeaderUserID, identity.UserID)
	if identity.Role != "" {
		h.Set(HeaderUserRole, identity.Role)
	}
	if identity.TenantID != "" {
		h.Set(HeaderTenantID, identity.TenantID)
	}
}

// BearerToken extracts the bearer token from an Authorization header value,
// returning "" when absent or not a bearer scheme
func BearerToken(r *http.Request) string {
	const prefix = "Bearer "
	value := r.Header.Get("Authorization")
	if len(value) > len(prefix) && value[:len(prefix)] == prefix {
		return value[len(prefix):]
	}
	return ""
}

var _ interfaces.IdentityResolver = (*Forwarder)(nil)

// String implements fmt.Stringer for debug logging without leaking tokens
func (f *Forwarder) String() string {
	return fmt.Sprintf("auth.Forwarder{service: %s, cache: %v}", f.serviceName, f.cache != nil)
}
