// Package gateway runs the HTTP server that fronts the platform's
// backend services.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
)

// Service implements interfaces.Gateway using dependency injection
type Service struct {
	container interfaces.Container
	server    *http.Server
	logger    interfaces.Logger
}

// NewService creates a new gateway service with dependency injection
func NewService(container interfaces.Container) interfaces.Gateway {
	return &Service{
		container: container,
		logger:    container.Logger(),
	}
}

// Start implements interfaces.Gateway.Start
func (s *Service) Start() error {
	config := s.container.Config()
	if config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	mainHandler := s.container.BuildHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Health()); err != nil {
			s.logger.Error("Failed to encode health response", map[string]any{"error": err.Error()})
		}
	})
	mux.Handle("/", mainHandler)

	listenAddr := fmt.Sprintf(":%d", config.ListenPort)

	s.server = &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.logger != nil {
		s.logger.Info("Starting gateway", map[string]any{
			"listen_addr": listenAddr,
			"services":    len(config.Services),
		})
	}

	// Start server in goroutine so Start() doesn't block
	errCh := make(chan error, 1)
	go func() {
		var err error
		if config.TLS != nil && config.TLS.Enabled {
			if s.logger != nil {
				s.logger.Info("Starting HTTPS server", map[string]any{
					"cert_file": config.TLS.CertFile,
					"key_file":  config.TLS.KeyFile,
				})
			}
			err = s.server.ListenAndServeTLS(config.TLS.CertFile, config.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Give the server a moment to start
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	// One-shot reachability probe so misconfigured backends surface in the
	// logs right away instead of on first proxied request
	if prober, ok := s.container.(interface{ ProbeBackends(context.Context) }); ok {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			prober.ProbeBackends(ctx)
		}()
	}

	return nil
}

// Stop implements interfaces.Gateway.Stop
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("Stopping gateway", map[string]any{})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.server.SetKeepAlivesEnabled(false)

	// Shutdown waits for in-flight requests; held resources (limiter
	// store, WebSocket connections) are released after the listener drains
	shutdownErr := s.server.Shutdown(ctx)

	if closer, ok := s.container.(interface{ Close() }); ok {
		closer.Close()
	}

	if s.logger != nil {
		if shutdownErr != nil {
			s.logger.Error("Error during graceful shutdown", map[string]any{"error": shutdownErr.Error()})
		} else {
			s.logger.Info("Graceful shutdown completed", map[string]any{})
		}
	}

	return shutdownErr
}

// Health implements interfaces.Gateway.Health
func (s *Service) Health() map[string]any {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	config := s.container.Config()
	if config != nil {
		health["config"] = map[string]any{
			"listen_port": config.ListenPort,
			"services":    len(config.Services),
		}
	}

	return health
}
