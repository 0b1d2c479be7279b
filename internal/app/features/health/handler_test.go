package health_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fuelbox/fuelbox/internal/app/backend/local"
	"github.com/fuelbox/fuelbox/internal/app/features/health"
	"github.com/fuelbox/fuelbox/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_BackendConnected(t *testing.T) {
	fb := testutil.NewFakeBackend()
	rec, resp := serve(t, health.NewHandler(fb, "local", zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if resp.Status != "ok" || resp.Backend != "connected" || resp.Kind != "local" {
		t.Errorf("body: got %+v", resp)
	}
}

func TestServe_BackendDown(t *testing.T) {
	fb := testutil.NewFakeBackend()
	fb.PingErr = errors.New("dial tcp: connection refused")
	rec, resp := serve(t, health.NewHandler(fb, "supabase", zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if resp.Status != "error" || resp.Message != "Backend unavailable" {
		t.Errorf("body: got %+v", resp)
	}
}

func TestServe_LocalMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	be, err := local.New(db, local.Options{JWTSecret: "test-jwt-secret-that-is-long-enough-0123", Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	rec, resp := serve(t, health.NewHandler(be, "local", zap.NewNop()))
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("got %d %+v", rec.Code, resp)
	}
}
