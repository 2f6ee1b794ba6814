package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/dormo/internal/api/apierr"
	"github.com/mcoot/dormo/internal/api/response"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles GET /api/v1.0/health
type HealthHandler struct {
	storage Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// ServeHTTP implements http.Handler
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		apierr.Respond(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
