package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onexay/revwalk/internal/config"
)

func TestServerRoutes(t *testing.T) {
	srv, err := NewServer(config.Config{
		APIAddr: "127.0.0.1:0",
		Storage: config.StorageConfig{Backend: config.StorageBackendMemory},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/api/v1/refs")
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refs status = %d", resp.StatusCode)
	}
}

func TestServerRejectsUnknownBackend(t *testing.T) {
	_, err := NewServer(config.Config{Storage: config.StorageConfig{Backend: "postgres"}})
	if err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
