package gateway

import (
	"net/http"
	"testing"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/logging"
)

// stubContainer satisfies interfaces.Container without a real handler chain
type stubContainer struct {
	config *interfaces.Config
	closed bool
}

func (s *stubContainer) Config() *interfaces.Config { return s.config }
func (s *stubContainer) Logger() interfaces.Logger  { return logging.NewNoOpLogger() }
func (s *stubContainer) BuildHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
func (s *stubContainer) Close() { s.closed = true }

func TestService_StartRequiresConfig(t *testing.T) {
	svc := NewService(&stubContainer{})
	if err := svc.Start(); err == nil {
		t.Error("Expected error when configuration is not loaded")
	}
}

func TestService_StopWithoutStart(t *testing.T) {
	svc := NewService(&stubContainer{config: &interfaces.Config{}})
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop before Start must be a no-op, got %v", err)
	}
}

func TestService_Health(t *testing.T) {
	cont := &stubContainer{config: &interfaces.Config{
		ListenPort: 8000,
		Services:   map[string]string{"auth": "http://auth:8001"},
	}}
	svc := NewService(cont)

	health := svc.Health()
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", health["status"])
	}

	cfg, ok := health["config"].(map[string]any)
	if !ok {
		t.Fatalf("Expected config section, got %v", health["config"])
	}
	if cfg["listen_port"] != 8000 || cfg["services"] != 1 {
		t.Errorf("Unexpected config section: %v", cfg)
	}
}
