package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campushub/gateway/internal/logging"
)

func TestNewStatic_Validation(t *testing.T) {
	tests := []struct {
		name      string
		services  map[string]string
		expectErr bool
	}{
		{
			name: "valid services",
			services: map[string]string{
				"auth":    "http://auth:8001",
				"content": "http://content:8003/",
			},
		},
		{
			name:      "empty map",
			services:  map[string]string{},
			expectErr: true,
		},
		{
			name:      "missing scheme",
			services:  map[string]string{"auth": "auth:8001"},
			expectErr: true,
		},
		{
			name:      "missing host",
			services:  map[string]string{"auth": "http://"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.services)
			if tt.expectErr && err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

func TestStatic_Lookup(t *testing.T) {
	reg, err := NewStatic(map[string]string{
		"auth": "http://auth:8001/",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ep, ok := reg.Lookup("auth")
	if !ok {
		t.Fatal("Expected auth to resolve")
	}
	if ep.BaseURL != "http://auth:8001" {
		t.Errorf("Expected trailing slash trimmed, got %q", ep.BaseURL)
	}

	if _, ok := reg.Lookup("unknownservice"); ok {
		t.Error("Expected unknown service to not resolve")
	}
}

func TestStatic_AllSorted(t *testing.T) {
	reg, err := NewStatic(map[string]string{
		"sync":  "http://sync:8006",
		"auth":  "http://auth:8001",
		"files": "http://files:8005",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	all := reg.All()
	want := []string{"auth", "files", "sync"}
	if len(all) != len(want) {
		t.Fatalf("Expected %d endpoints, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("Expected endpoint %d to be %s, got %s", i, name, all[i].Name)
		}
	}
}

func TestHealthChecker_CheckAll(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Expected /health probe, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	// A listener that is closed immediately gives connection refused
	refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	refusedURL := refused.URL
	refused.Close()

	reg, err := NewStatic(map[string]string{
		"auth":    healthy.URL,
		"content": unhealthy.URL,
		"files":   refusedURL,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	checker := NewHealthChecker(reg, 2*time.Second, logging.NewNoOpLogger())
	results := checker.CheckAll(context.Background())

	byName := make(map[string]ServiceHealth, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	if !byName["auth"].Healthy || byName["auth"].Status != "healthy" {
		t.Errorf("Expected auth healthy, got %+v", byName["auth"])
	}
	if byName["content"].Healthy || byName["content"].Status != "unhealthy" {
		t.Errorf("Expected content unhealthy, got %+v", byName["content"])
	}
	if byName["files"].Healthy || byName["files"].Status != "unreachable" {
		t.Errorf("Expected files unreachable, got %+v", byName["files"])
	}
}
