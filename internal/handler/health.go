package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the store is reachable. repository.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers GET /api/health with a live store check.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HandleHealth → 200 {state: true, database: "connected"}
// or 503 {state: false, database: "disconnected", error}.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"state":    false,
			"database": "disconnected",
			"error":    "database unreachable",
		})
		return
	}
	writeOK(w, http.StatusOK, envelope{"database": "connected"})
}
