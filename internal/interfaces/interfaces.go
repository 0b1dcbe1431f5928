package interfaces

import (
	"context"
	"net/http"
	"time"
)

// ConfigLoader handles loading configuration from various sources
type ConfigLoader interface {
	Load() (*Config, error)
}

// Config represents the full gateway configuration
type Config struct {
	ListenPort int
	LogLevel   string
	LogFormat  string

	// Services maps logical service names to base URLs
	Services map[string]string

	// RedisURL is the shared rate-limit counter store; empty selects the
	// in-process fallback limiter
	RedisURL string

	Limits      Limits
	RouteLimits map[string]Quota
	Breaker     BreakerConfig
	Auth        AuthConfig
	Proxy       ProxyConfig
	CORS        CORSConfig
	WebSocket   WebSocketConfig
	Metrics     MetricsConfig
	TLS         *TLSConfig
}

// Limits holds the default request quota plus the global inbound ceiling
type Limits struct {
	Requests      int
	WindowSeconds int
	Burst         int
	GlobalRPS     int
	GlobalBurst   int
}

// Quota is a per-key request budget over a window
type Quota struct {
	Requests      int
	WindowSeconds int
	Burst         int
}

// Window returns the quota window as a duration
func (q Quota) Window() time.Duration {
	return time.Duration(q.WindowSeconds) * time.Second
}

// Max returns the effective ceiling including the burst allowance
func (q Quota) Max() int {
	return q.Requests + q.Burst
}

type BreakerConfig struct {
	FailureThreshold       int
	RecoveryTimeoutSeconds int
}

type AuthConfig struct {
	Service         string
	TimeoutSeconds  int
	CacheTTLSeconds int
	CacheSize       int
}

type ProxyConfig struct {
	TimeoutSeconds int
	// StrictBody rejects malformed JSON bodies with 400 instead of
	// forwarding the request without a body
	StrictBody  bool
	MaxBodySize int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type WebSocketConfig struct {
	SendBuffer          int
	WriteTimeoutSeconds int
	MaxMessageBytes     int64
	PingIntervalSeconds int
}

type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// Identity is the result of resolving a bearer token against the auth
// service. It is attached to proxied requests as trusted headers and is
// never persisted by the gateway.
type Identity struct {
	UserID   string
	Role     string
	TenantID string
}

// IdentityResolver turns a bearer token into an Identity. A nil Identity
// means the request proceeds as anonymous.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) *Identity
}

// Decision is the outcome of a rate-limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a windowed request counter keyed by client
type Limiter interface {
	// Check atomically increments the counter for key and reports whether
	// the request fits within quota
	Check(ctx context.Context, key string, quota Quota) (Decision, error)

	// Reset clears the window for a key
	Reset(ctx context.Context, key string) error
}

// Endpoint is a registered backend service
type Endpoint struct {
	Name    string
	BaseURL string
}

// Registry resolves logical service names to endpoints. Immutable after
// construction.
type Registry interface {
	Lookup(name string) (Endpoint, bool)
	All() []Endpoint
}

// Gateway represents the main gateway service
type Gateway interface {
	// Start begins serving HTTP requests
	Start() error

	// Stop gracefully shuts down the gateway
	Stop() error

	// Health returns the health status of the gateway
	Health() map[string]any
}

// Logger provides structured logging
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// Container holds application dependencies and provides dependency injection
type Container interface {
	// Config returns the loaded configuration
	Config() *Config

	// Logger returns the logger instance
	Logger() Logger

	// BuildHandler creates the complete middleware chain
	BuildHandler() http.Handler
}
