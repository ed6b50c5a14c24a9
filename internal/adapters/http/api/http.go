// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/podium/internal/adapters/snapshot"
	"github.com/okian/podium/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// CurrentState returns the latest reconciled board.
	CurrentState() types.BoardState

	// Subscribe registers a board-state fan-out channel for streaming.
	Subscribe() (<-chan types.BoardState, func())

	// Healthy reports whether the upstream connection is live.
	Healthy() bool

	// Health returns the full feed connection status.
	Health() types.ConnectionHealth

	// History exposes persisted period snapshots.
	History(ctx context.Context) ([]types.Period, error)
	HistorySnapshot(ctx context.Context, period types.Period) (*snapshot.Snapshot, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	streamHandler      *StreamHandler
	historyHandler     *HistoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		streamHandler:      NewStreamHandler(deps),
		historyHandler:     NewHistoryHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithStreamKeepalive sets the SSE keepalive cadence.
func WithStreamKeepalive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamHandler.keepalive = d
		}
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/stream", s.streamHandler.HandleStream)
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleListPeriods, "history"))
	mux.HandleFunc("/history/", MetricsMiddleware(s.historyHandler.HandleGetSnapshot, "history_period"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
