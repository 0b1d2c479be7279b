package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is the liveness probe of the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Backend Pinger
	Kind    string // "supabase" or "local"
	Log     *zap.Logger
}

func NewHandler(be Pinger, kind string, logger *zap.Logger) *Handler {
	return &Handler{Backend: be, Kind: kind, Log: logger}
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"connected", "kind":"supabase" }
//
// When the backend does not answer: 503 and
//
//	{ "status":"error", "backend":"disconnected", "message":"Backend unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{Status: "ok", Backend: "connected", Kind: h.Kind}
	if err := h.Backend.Ping(ctx); err != nil {
		h.Log.Error("health-check: backend ping failed", zap.String("kind", h.Kind), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Backend = "disconnected"
		resp.Message = "Backend unavailable"
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(w).Encode(resp)
}
