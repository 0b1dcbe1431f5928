package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/campushub/gateway/internal/interfaces"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestFileLoader_Load(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		validate  func(*testing.T, *interfaces.Config)
		expectErr bool
	}{
		{
			name: "complete configuration",
			content: `
listen_port: 8000
log_level: debug
services:
  auth: "http://auth-service:8001"
  content: "http://content-service:8003"
redis_url: "redis://localhost:6379/0"
limits:
  requests: 100
  window_seconds: 60
  burst: 20
route_limits:
  "POST /api/v1/auth/login":
    requests: 5
    window_seconds: 60
breaker:
  failure_threshold: 3
  recovery_timeout_seconds: 10
auth:
  timeout_seconds: 2
  cache_ttl_seconds: 30
proxy:
  timeout_seconds: 15
  strict_body: true
cors:
  allowed_origins: ["https://app.example.com"]
metrics:
  enabled: true
`,
			validate: func(t *testing.T, cfg *interfaces.Config) {
				if cfg.ListenPort != 8000 {
					t.Errorf("Expected ListenPort 8000, got %d", cfg.ListenPort)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("Expected LogLevel debug, got %s", cfg.LogLevel)
				}
				if len(cfg.Services) != 2 {
					t.Errorf("Expected 2 services, got %d", len(cfg.Services))
				}
				if cfg.Services["auth"] != "http://auth-service:8001" {
					t.Errorf("Unexpected auth base URL: %s", cfg.Services["auth"])
				}
				if cfg.RedisURL != "redis://localhost:6379/0" {
					t.Errorf("Unexpected redis URL: %s", cfg.RedisURL)
				}
				if cfg.Limits.Requests != 100 || cfg.Limits.WindowSeconds != 60 || cfg.Limits.Burst != 20 {
					t.Errorf("Unexpected limits: %+v", cfg.Limits)
				}
				q, ok := cfg.RouteLimits["POST /api/v1/auth/login"]
				if !ok {
					t.Fatal("Expected login route limit")
				}
				if q.Requests != 5 || q.WindowSeconds != 60 {
					t.Errorf("Unexpected login quota: %+v", q)
				}
				if cfg.Breaker.FailureThreshold != 3 {
					t.Errorf("Expected FailureThreshold 3, got %d", cfg.Breaker.FailureThreshold)
				}
				if cfg.Breaker.RecoveryTimeoutSeconds != 10 {
					t.Errorf("Expected RecoveryTimeoutSeconds 10, got %d", cfg.Breaker.RecoveryTimeoutSeconds)
				}
				if cfg.Auth.TimeoutSeconds != 2 {
					t.Errorf("Expected auth timeout 2, got %d", cfg.Auth.TimeoutSeconds)
				}
				if !cfg.Proxy.StrictBody {
					t.Error("Expected StrictBody true")
				}
				if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://app.example.com" {
					t.Errorf("Unexpected CORS origins: %v", cfg.CORS.AllowedOrigins)
				}
				if !cfg.Metrics.Enabled {
					t.Error("Expected metrics enabled")
				}
			},
		},
		{
			name: "defaults applied",
			content: `
services:
  auth: "http://auth:8001"
`,
			validate: func(t *testing.T, cfg *interfaces.Config) {
				if cfg.ListenPort != 8000 {
					t.Errorf("Expected default ListenPort 8000, got %d", cfg.ListenPort)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("Expected default LogLevel info, got %s", cfg.LogLevel)
				}
				if cfg.Limits.Requests != 100 || cfg.Limits.WindowSeconds != 60 {
					t.Errorf("Unexpected default limits: %+v", cfg.Limits)
				}
				if cfg.Breaker.FailureThreshold != 5 {
					t.Errorf("Expected default threshold 5, got %d", cfg.Breaker.FailureThreshold)
				}
				if cfg.Breaker.RecoveryTimeoutSeconds != 30 {
					t.Errorf("Expected default recovery 30, got %d", cfg.Breaker.RecoveryTimeoutSeconds)
				}
				if cfg.Auth.Service != "auth" {
					t.Errorf("Expected default auth service name, got %s", cfg.Auth.Service)
				}
				if cfg.Proxy.TimeoutSeconds != 30 {
					t.Errorf("Expected default proxy timeout 30, got %d", cfg.Proxy.TimeoutSeconds)
				}
				if cfg.Metrics.Endpoint != "/metrics" {
					t.Errorf("Expected default metrics endpoint, got %s", cfg.Metrics.Endpoint)
				}
				if cfg.WebSocket.SendBuffer != 64 {
					t.Errorf("Expected default ws send buffer 64, got %d", cfg.WebSocket.SendBuffer)
				}
			},
		},
		{
			name:      "no services",
			content:   "listen_port: 8000\n",
			expectErr: true,
		},
		{
			name: "auth service missing from registry",
			content: `
services:
  content: "http://content:8003"
`,
			expectErr: true,
		},
		{
			name: "empty base URL",
			content: `
services:
  auth: "http://auth:8001"
  files: ""
`,
			expectErr: true,
		},
		{
			name:      "invalid yaml",
			content:   "services: [not a map",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewFileLoader(writeConfigFile(t, tt.content))
			cfg, err := loader.Load()

			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestFileLoader_MissingFile(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := loader.Load(); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestFileLoader_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_LISTEN_PORT", "9100")
	t.Setenv("GATEWAY_REDIS_URL", "redis://override:6379/1")
	t.Setenv("GATEWAY_SERVICE_FILES_URL", "http://files-override:8005")

	loader := NewFileLoader(writeConfigFile(t, `
listen_port: 8000
services:
  auth: "http://auth:8001"
`))

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ListenPort != 9100 {
		t.Errorf("Expected env override port 9100, got %d", cfg.ListenPort)
	}
	if cfg.RedisURL != "redis://override:6379/1" {
		t.Errorf("Expected env override redis URL, got %s", cfg.RedisURL)
	}
	if cfg.Services["files"] != "http://files-override:8005" {
		t.Errorf("Expected env-injected files service, got %q", cfg.Services["files"])
	}
}

func TestMemoryLoader_Load(t *testing.T) {
	base := &interfaces.Config{
		Services: map[string]string{"auth": "http://auth:8001"},
	}

	loader := NewMemoryLoader(base)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ListenPort != 8000 {
		t.Errorf("Expected defaults applied, got port %d", cfg.ListenPort)
	}

	// The returned config must be a copy
	cfg.ListenPort = 1
	if base.ListenPort == 1 {
		t.Error("MemoryLoader returned a reference to the original config")
	}
}
