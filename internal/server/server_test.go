package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/PeterChen712/EcoSortify-sub002/internal/config"
)

func TestHealthRoute(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0", IngestWorkers: 1, IngestQueueSize: 8}, nil, nil)
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0", IngestWorkers: 1, IngestQueueSize: 8}, nil, nil)
	defer s.Shutdown(context.Background())

	for _, path := range []string{"/recording/sessions", "/collection/items", "/sync/push"} {
		req := httptest.NewRequest("POST", path, nil)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("test request %s: %v", path, err)
		}
		if resp.StatusCode != 401 {
			t.Fatalf("expected 401 for %s, got %d", path, resp.StatusCode)
		}
	}

	req := httptest.NewRequest("GET", "/stats", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request /stats: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 for /stats, got %d", resp.StatusCode)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0", IngestWorkers: 1, IngestQueueSize: 8}, nil, nil)
	s.Shutdown(context.Background())
	s.Shutdown(context.Background())
}
