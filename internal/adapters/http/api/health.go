// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/podium/internal/domain/types"
)

// HealthDependencies is the subset of Dependencies health checks use.
type HealthDependencies interface {
	Healthy() bool
	Health() types.ConnectionHealth
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status        string                 `json:"status"`
	FeedConnected bool                   `json:"feed_connected"`
	Feed          types.ConnectionHealth `json:"feed"`
}

// HandleHealth handles GET /healthz requests. The process is alive either
// way; a degraded status means the upstream connection is down and the board
// is running on retained data.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := healthResponse{Status: "ok", FeedConnected: true, Feed: h.deps.Health()}
	if !h.deps.Healthy() {
		resp.Status = "degraded"
		resp.FeedConnected = false
	}
	writeJSON(w, http.StatusOK, resp)
}
