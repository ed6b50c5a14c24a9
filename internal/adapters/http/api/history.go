// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/podium/internal/adapters/snapshot"
	"github.com/okian/podium/internal/domain/types"
)

// HistoryDependencies is the subset of Dependencies history reads use.
type HistoryDependencies interface {
	History(ctx context.Context) ([]types.Period, error)
	HistorySnapshot(ctx context.Context, period types.Period) (*snapshot.Snapshot, error)
}

// HistoryHandler serves persisted period snapshots.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

type periodsResponse struct {
	Periods []string `json:"periods"`
}

// HandleListPeriods handles GET /history requests.
func (h *HistoryHandler) HandleListPeriods(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_periods"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	periods, err := h.deps.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	resp := periodsResponse{Periods: make([]string, 0, len(periods))}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, p.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetSnapshot handles GET /history/{period} requests, period as YYYY-MM.
func (h *HistoryHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_snapshot"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/history/")
	period, err := types.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.HistorySnapshot(r.Context(), period)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
