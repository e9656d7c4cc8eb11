package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Health(nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.Database != "" {
		t.Fatalf("expected no database status without a pinger, got %q", resp.Database)
	}
	if resp.Time.IsZero() {
		t.Fatal("expected response time to be populated")
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ping       Pinger
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{"reachable", func(context.Context) error { return nil }, http.StatusOK, "ok", "ok"},
		{"unreachable", func(context.Context) error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		Health(tt.ping)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if w.Code != tt.wantCode {
			t.Fatalf("%s: expected status %d, got %d", tt.name, tt.wantCode, w.Code)
		}
		var resp healthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", tt.name, err)
		}
		if resp.Status != tt.wantStatus || resp.Database != tt.wantDB {
			t.Fatalf("%s: unexpected body %+v", tt.name, resp)
		}
	}
}
