package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/campushub/gateway/internal/interfaces"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized on top of the YAML file. Service URLs
// use GATEWAY_SERVICE_<NAME>_URL, e.g. GATEWAY_SERVICE_AUTH_URL.
const (
	envListenPort = "GATEWAY_LISTEN_PORT"
	envRedisURL   = "GATEWAY_REDIS_URL"
	envLogLevel   = "GATEWAY_LOG_LEVEL"

	serviceEnvPrefix = "GATEWAY_SERVICE_"
	serviceEnvSuffix = "_URL"
)

// FileLoader loads configuration from a YAML file with environment
// overrides applied on top
type FileLoader struct {
	filePath string
}

// NewFileLoader creates a new file-based configuration loader
func NewFileLoader(filePath string) *FileLoader {
	return &FileLoader{
		filePath: filePath,
	}
}

type yamlQuota struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
	Burst         int `yaml:"burst"`
}

type yamlConfig struct {
	ListenPort  int                  `yaml:"listen_port"`
	LogLevel    string               `yaml:"log_level"`
	LogFormat   string               `yaml:"log_format"`
	Services    map[string]string    `yaml:"services"`
	RedisURL    string               `yaml:"redis_url"`
	Limits      struct {
		Requests      int `yaml:"requests"`
		WindowSeconds int `yaml:"window_seconds"`
		Burst         int `yaml:"burst"`
		GlobalRPS     int `yaml:"global_rps"`
		GlobalBurst   int `yaml:"global_burst"`
	} `yaml:"limits"`
	RouteLimits map[string]yamlQuota `yaml:"route_limits"`
	Breaker     struct {
		FailureThreshold       int `yaml:"failure_threshold"`
		RecoveryTimeoutSeconds int `yaml:"recovery_timeout_seconds"`
	} `yaml:"breaker"`
	Auth struct {
		Service         string `yaml:"service"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		CacheSize       int    `yaml:"cache_size"`
	} `yaml:"auth"`
	Proxy struct {
		TimeoutSeconds int   `yaml:"timeout_seconds"`
		StrictBody     bool  `yaml:"strict_body"`
		MaxBodySize    int64 `yaml:"max_body_size"`
	} `yaml:"proxy"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	WebSocket struct {
		SendBuffer          int   `yaml:"send_buffer"`
		WriteTimeoutSeconds int   `yaml:"write_timeout_seconds"`
		MaxMessageBytes     int64 `yaml:"max_message_bytes"`
		PingIntervalSeconds int   `yaml:"ping_interval_seconds"`
	} `yaml:"websocket"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"metrics"`
	TLS *struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`
}

// Load implements interfaces.ConfigLoader
func (f *FileLoader) Load() (*interfaces.Config, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &interfaces.Config{
		ListenPort: yc.ListenPort,
		LogLevel:   yc.LogLevel,
		LogFormat:  yc.LogFormat,
		Services:   yc.Services,
		RedisURL:   yc.RedisURL,
		Limits: interfaces.Limits{
			Requests:      yc.Limits.Requests,
			WindowSeconds: yc.Limits.WindowSeconds,
			Burst:         yc.Limits.Burst,
			GlobalRPS:     yc.Limits.GlobalRPS,
			GlobalBurst:   yc.Limits.GlobalBurst,
		},
		Breaker: interfaces.BreakerConfig{
			FailureThreshold:       yc.Breaker.FailureThreshold,
			RecoveryTimeoutSeconds: yc.Breaker.RecoveryTimeoutSeconds,
		},
		Auth: interfaces.AuthConfig{
			Service:         yc.Auth.Service,
			TimeoutSeconds:  yc.Auth.TimeoutSeconds,
			CacheTTLSeconds: yc.Auth.CacheTTLSeconds,
			CacheSize:       yc.Auth.CacheSize,
		},
		Proxy: interfaces.ProxyConfig{
			TimeoutSeconds: yc.Proxy.TimeoutSeconds,
			StrictBody:     yc.Proxy.StrictBody,
			MaxBodySize:    yc.Proxy.MaxBodySize,
		},
		CORS: interfaces.CORSConfig{
			AllowedOrigins: yc.CORS.AllowedOrigins,
		},
		WebSocket: interfaces.WebSocketConfig{
			SendBuffer:          yc.WebSocket.SendBuffer,
			WriteTimeoutSeconds: yc.WebSocket.WriteTimeoutSeconds,
			MaxMessageBytes:     yc.WebSocket.MaxMessageBytes,
			PingIntervalSeconds: yc.WebSocket.PingIntervalSeconds,
		},
		Metrics: interfaces.MetricsConfig{
			Enabled:  yc.Metrics.Enabled,
			Endpoint: yc.Metrics.Endpoint,
		},
	}

	if len(yc.RouteLimits) > 0 {
		cfg.RouteLimits = make(map[string]interfaces.Quota, len(yc.RouteLimits))
		for route, q := range yc.RouteLimits {
			cfg.RouteLimits[route] = interfaces.Quota{
				Requests:      q.Requests,
				WindowSeconds: q.WindowSeconds,
				Burst:         q.Burst,
			}
		}
	}

	if yc.TLS != nil {
		cfg.TLS = &interfaces.TLSConfig{
			Enabled:  yc.TLS.Enabled,
			CertFile: yc.TLS.CertFile,
			KeyFile:  yc.TLS.KeyFile,
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides layers recognized environment variables over the file
func applyEnvOverrides(cfg *interfaces.Config) {
	if v := os.Getenv(envListenPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ListenPort = port
		}
	}
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if !strings.HasPrefix(name, serviceEnvPrefix) || !strings.HasSuffix(name, serviceEnvSuffix) {
			continue
		}
		service := strings.TrimSuffix(strings.TrimPrefix(name, serviceEnvPrefix), serviceEnvSuffix)
		if service == "" {
			continue
		}
		if cfg.Services == nil {
			cfg.Services = make(map[string]string)
		}
		cfg.Services[strings.ToLower(service)] = value
	}
}

// applyDefaults fills in zero-valued fields
func applyDefaults(cfg *interfaces.Config) {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Limits.Requests == 0 {
		cfg.Limits.Requests = 100
	}
	if cfg.Limits.WindowSeconds == 0 {
		cfg.Limits.WindowSeconds = 60
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.RecoveryTimeoutSeconds == 0 {
		cfg.Breaker.RecoveryTimeoutSeconds = 30
	}
	if cfg.Auth.Service == "" {
		cfg.Auth.Service = "auth"
	}
	if cfg.Auth.TimeoutSeconds == 0 {
		cfg.Auth.TimeoutSeconds = 3
	}
	if cfg.Auth.CacheSize == 0 {
		cfg.Auth.CacheSize = 1024
	}
	if cfg.Proxy.TimeoutSeconds == 0 {
		cfg.Proxy.TimeoutSeconds = 30
	}
	if cfg.Proxy.MaxBodySize == 0 {
		cfg.Proxy.MaxBodySize = 10 * 1024 * 1024
	}
	if cfg.WebSocket.SendBuffer == 0 {
		cfg.WebSocket.SendBuffer = 64
	}
	if cfg.WebSocket.WriteTimeoutSeconds == 0 {
		cfg.WebSocket.WriteTimeoutSeconds = 5
	}
	if cfg.WebSocket.MaxMessageBytes == 0 {
		cfg.WebSocket.MaxMessageBytes = 64 * 1024
	}
	if cfg.WebSocket.PingIntervalSeconds == 0 {
		cfg.WebSocket.PingIntervalSeconds = 30
	}
	if cfg.Metrics.Endpoint == "" {
		cfg.Metrics.Endpoint = "/metrics"
	}
}

// validate rejects configurations the gateway cannot start with
func validate(cfg *interfaces.Config) error {
	if len(cfg.Services) == 0 {
		return fmt.Errorf("config: no services registered")
	}
	if _, ok := cfg.Services[cfg.Auth.Service]; !ok {
		return fmt.Errorf("config: auth service %q not present in services", cfg.Auth.Service)
	}
	for name, base := range cfg.Services {
		if base == "" {
			return fmt.Errorf("config: service %q has empty base URL", name)
		}
	}
	return nil
}

// MemoryLoader loads configuration from memory (useful for testing)
type MemoryLoader struct {
	config *interfaces.Config
}

// NewMemoryLoader creates a new in-memory configuration loader
func NewMemoryLoader(config *interfaces.Config) *MemoryLoader {
	return &MemoryLoader{
		config: config,
	}
}

// Load implements interfaces.ConfigLoader
func (m *MemoryLoader) Load() (*interfaces.Config, error) {
	cfg := *m.config
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
