package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kozaktomas/xiangxin/internal/database"
	"github.com/kozaktomas/xiangxin/internal/logger"
)

const healthPingTimeout = 2 * time.Second

// Database states reported by the health endpoint.
const (
	dbDisabled    = "disabled"
	dbOK          = "ok"
	dbUnavailable = "unavailable"
)

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler reports liveness and run log reachability.
// Analysis keeps working without the run log, so a failed ping only degrades.
type HealthHandler struct {
	db database.HealthChecker
}

// NewHealthHandler creates a health handler; db may be nil.
func NewHealthHandler(db database.HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: dbDisabled}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			logger.WithError(err).Warn("health check: database unreachable")
			resp.Status = "degraded"
			resp.Database = dbUnavailable
		} else {
			resp.Database = dbOK
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
