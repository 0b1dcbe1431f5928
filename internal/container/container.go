package container

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campushub/gateway/internal/auth"
	"github.com/campushub/gateway/internal/breaker"
	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/logging"
	"github.com/campushub/gateway/internal/metrics"
	"github.com/campushub/gateway/internal/middleware"
	"github.com/campushub/gateway/internal/proxy"
	"github.com/campushub/gateway/internal/ratelimit"
	"github.com/campushub/gateway/internal/registry"
	"github.com/campushub/gateway/internal/ws"
)

// messagingService is the registered service that persists chat messages
const messagingService = "sync"

// Container holds all application dependencies
type Container struct {
	configLoader interfaces.ConfigLoader
	config       *interfaces.Config
	logger       interfaces.Logger

	services  interfaces.Registry
	collector *metrics.Collector
	client    *breaker.Client
	limiter   interfaces.Limiter
	global    *ratelimit.Global
	resolver  *auth.Forwarder
	proxy     *proxy.Router
	checker   *registry.HealthChecker

	wsManager *ws.Manager
	wsHandler *ws.Handler

	redisLimiter *ratelimit.RedisLimiter
	cleanupStop  chan struct{}
}

// New creates a new dependency injection container
func New() *Container {
	return &Container{}
}

// SetConfigLoader sets the configuration loader
func (c *Container) SetConfigLoader(loader interfaces.ConfigLoader) {
	c.configLoader = loader
}

// SetLogger sets the logger implementation
func (c *Container) SetLogger(logger interfaces.Logger) {
	c.logger = logger
}

// Config returns the loaded configuration
func (c *Container) Config() *interfaces.Config {
	return c.config
}

// Logger returns the logger
func (c *Container) Logger() interfaces.Logger {
	return c.logger
}

// Registry returns the service registry
func (c *Container) Registry() interfaces.Registry {
	return c.services
}

// Breaker returns the circuit-breaking upstream client
func (c *Container) Breaker() *breaker.Client {
	return c.client
}

// Limiter returns the rate limiter backing per-route quotas
func (c *Container) Limiter() interfaces.Limiter {
	return c.limiter
}

// WSManager returns the WebSocket connection manager
func (c *Container) WSManager() *ws.Manager {
	return c.wsManager
}

// Initialize loads configuration and sets up all dependencies
func (c *Container) Initialize() error {
	if c.configLoader == nil {
		return fmt.Errorf("config loader not set")
	}

	cfg, err := c.configLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.config = cfg

	if c.logger == nil {
		c.logger = logging.NewSlogLogger(cfg.LogLevel, cfg.LogFormat)
	}

	services, err := registry.NewStatic(cfg.Services)
	if err != nil {
		return fmt.Errorf("failed to build service registry: %w", err)
	}
	c.services = services

	if cfg.Metrics.Enabled {
		c.collector = metrics.NewCollector()
	}

	proxyTimeout := time.Duration(cfg.Proxy.TimeoutSeconds) * time.Second
	c.client = breaker.NewClient(services, cfg.Breaker, proxyTimeout, c.logger, c.collector)

	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(cfg.RedisURL, time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect rate-limit store: %w", err)
		}
		c.redisLimiter = redisLimiter
		c.limiter = redisLimiter
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		c.cleanupStop = make(chan struct{})
		go memLimiter.StartCleanup(5*time.Minute, time.Hour, c.cleanupStop)
		c.limiter = memLimiter

		if c.logger != nil {
			c.logger.Warn("No redis_url configured, using in-process rate limiting", map[string]any{})
		}
	}

	c.global = ratelimit.NewGlobal(cfg.Limits.GlobalRPS, cfg.Limits.GlobalBurst)
	c.resolver = auth.NewForwarder(services, cfg.Auth, c.logger)
	c.proxy = proxy.NewRouter(c.client, cfg.Proxy, c.logger)
	c.checker = registry.NewHealthChecker(services, 3*time.Second, c.logger)

	c.wsManager = ws.NewManager(cfg.WebSocket, c.logger, c.collector)
	chat := ws.NewChatClient(c.client, messagingService)
	wsRouter := ws.NewRouter(c.wsManager, chat, c.logger, c.collector)
	c.wsHandler = ws.NewHandler(c.wsManager, wsRouter, cfg.WebSocket, cfg.CORS.AllowedOrigins, c.logger)

	return nil
}

// BuildHandler creates the complete routing and middleware chain
func (c *Container) BuildHandler() http.Handler {
	if c.proxy == nil {
		panic("container not initialized")
	}
	cfg := c.config

	identity := auth.Middleware(c.resolver)
	defaultQuota := interfaces.Quota{
		Requests:      cfg.Limits.Requests,
		WindowSeconds: cfg.Limits.WindowSeconds,
		Burst:         cfg.Limits.Burst,
	}

	mux := http.NewServeMux()

	if c.collector != nil {
		mux.Handle(cfg.Metrics.Endpoint, c.collector.Handler())
	}

	mux.HandleFunc("/api/v1/services", c.handleServices)

	// Credential endpoints get tight per-client quotas with their own
	// scopes, so login attempts cannot eat the register budget
	mux.Handle("/api/v1/auth/login", chain(c.proxy,
		ratelimit.Middleware(c.limiter, c.routeQuota("POST /api/v1/auth/login", 5), "login", c.collector, c.logger),
		identity,
	))
	mux.Handle("/api/v1/auth/register", chain(c.proxy,
		ratelimit.Middleware(c.limiter, c.routeQuota("POST /api/v1/auth/register", 3), "register", c.collector, c.logger),
		identity,
	))

	// Uploads are the one route the gateway itself gates on identity
	mux.Handle("/api/v1/files/upload", chain(c.proxy,
		ratelimit.Middleware(c.limiter, defaultQuota, "upload", c.collector, c.logger),
		identity,
		auth.RequireIdentity,
	))

	mux.Handle("/ws/", c.wsHandler)

	mux.Handle("/api/v1/", chain(c.proxy,
		ratelimit.Middleware(c.limiter, defaultQuota, "api", c.collector, c.logger),
		identity,
	))

	return chain(mux,
		metrics.Middleware(c.collector, c.logger),
		middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins),
		c.global.Middleware(c.collector),
		middleware.NewRequestValidationMiddleware(cfg.Proxy.MaxBodySize),
	)
}

// routeQuota returns the configured override for a route or a one-minute
// default with the given request budget
func (c *Container) routeQuota(route string, requests int) interfaces.Quota {
	if q, ok := c.config.RouteLimits[route]; ok {
		return q
	}
	return interfaces.Quota{Requests: requests, WindowSeconds: 60}
}

// handleServices reports each backend's live health and its circuit state
func (c *Container) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	payload := map[string]any{
		"services": c.checker.CheckAll(ctx),
		"circuits": c.client.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil && c.logger != nil {
		c.logger.Error("Failed to encode services response", map[string]any{"error": err.Error()})
	}
}

// ProbeBackends checks every registered service once and logs the outcome;
// called at startup so a misconfigured URL is visible immediately
func (c *Container) ProbeBackends(ctx context.Context) {
	for _, result := range c.checker.CheckAll(ctx) {
		fields := map[string]any{
			"service":    result.Name,
			"base_url":   result.BaseURL,
			"status":     result.Status,
			"latency_ms": result.LatencyMS,
		}
		if result.Healthy {
			c.logger.Info("Backend reachable", fields)
		} else {
			c.logger.Warn("Backend not reachable", fields)
		}
	}
}

// Close releases held resources: the rate-limit store connection, the
// in-memory limiter's cleanup goroutine, and all WebSocket connections
func (c *Container) Close() {
	if c.cleanupStop != nil {
		close(c.cleanupStop)
		c.cleanupStop = nil
	}
	if c.redisLimiter != nil {
		_ = c.redisLimiter.Close()
	}
	if c.wsManager != nil {
		c.wsManager.Shutdown()
	}
}

// chain wraps h with the given middleware, outermost first
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
