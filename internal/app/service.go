// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// One goroutine consumes feed payloads and runs reconciliation passes.
// Passes are strictly serialized: the entries of a pass are committed as the
// previous-entries reference before the next payload is taken. Everything
// the API reads is the atomically swapped BoardState.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/adapters/snapshot"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/reconcile"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultChangeEventTTL  = 6 * time.Second
	defaultSubscriberSlack = 4
)

// Feed is the live payload source owned by the service.
type Feed interface {
	Start(ctx context.Context) error
	Updates() <-chan model.Board
	Healthy() bool
	Health() types.ConnectionHealth
	Close() error
}

// Roster is the enrichment directory the engine reads from.
type Roster interface {
	Load(ctx context.Context) error
	Records() []model.RosterRecord
	Lookup(name, first, last string) (model.RosterRecord, bool)
}

// Service wires the feed, engine, roster, and snapshot store together and
// publishes the reconciled board.
type Service struct {
	mu sync.RWMutex

	// Core components
	feed      Feed
	roster    Roster
	engine    *reconcile.Engine
	snapshots snapshot.Store

	// Configuration
	changeTTL       time.Duration
	snapshotEnabled bool
	clock           clockwork.Clock

	// State
	started        bool
	done           chan struct{}
	state          types.BoardState
	hasState       bool
	prevEntries    []model.DisplayEntry
	changeDeadline time.Time
	passCount      int64

	// Fan-out
	subs map[string]chan types.BoardState

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration. A feed must be
// provided via WithFeed before Start.
func New(opts ...Option) *Service {
	s := &Service{
		engine:          reconcile.New(),
		changeTTL:       defaultChangeEventTTL,
		snapshotEnabled: true,
		clock:           clockwork.NewRealClock(),
		done:            make(chan struct{}),
		subs:            make(map[string]chan types.BoardState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the roster, starts the feed, and launches the reconcile loop.
// A roster failure is logged and tolerated: the board runs unenriched until
// a later refresh succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.feed == nil {
		return ErrNoFeed
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting board service...")

	if s.roster != nil {
		if err := s.roster.Load(ctx); err != nil {
			s.logger.Warn(ctx, "roster unavailable, starting unenriched", logger.Error(err))
		}
	}

	if err := s.feed.Start(ctx); err != nil {
		return err
	}

	go s.run(ctx)

	s.started = true
	s.logger.Info(ctx, "board service started")
	return nil
}

// Stop closes the feed and waits for the reconcile loop to drain.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping board service...")

	// Closing the feed closes Updates, which ends the loop.
	_ = s.feed.Close()
	<-s.done

	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	metrics.UpdateStreamSubscribers(0)

	s.logger.Info(context.Background(), "board service stopped")
}

// run is the single reconcile loop. It owns prevEntries; nothing else
// touches it.
func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	for board := range s.feed.Updates() {
		s.pass(ctx, board)
	}
}

func (s *Service) pass(ctx context.Context, board model.Board) {
	start := time.Now()

	var dir reconcile.Directory
	if s.roster != nil {
		dir = s.roster
	}
	res := s.engine.Reconcile(s.prevEntries, board.Agents, dir)

	// Commit before anything else may observe the pass.
	s.prevEntries = res.Entries

	updatedAt := board.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.clock.Now()
	}
	state := types.BoardState{
		Entries:   res.Entries,
		Summary:   res.Summary,
		Changes:   res.Changes,
		UpdatedAt: updatedAt,
		Health:    s.feed.Health(),
	}

	s.mu.Lock()
	s.state = state
	s.hasState = true
	s.passCount++
	if len(res.Changes) > 0 {
		s.changeDeadline = s.clock.Now().Add(s.changeTTL)
	}
	subs := make([]chan types.BoardState, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		// Slow subscribers lose intermediate states rather than block the loop.
		select {
		case ch <- state:
		default:
		}
	}

	placeholders := 0
	for _, e := range res.Entries {
		if e.Placeholder {
			placeholders++
		}
	}
	metrics.RecordReconcilePass()
	metrics.RecordReconcileDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateBoardEntries(len(res.Entries))
	metrics.UpdateBoardPlaceholders(placeholders)
	metrics.RecordRankChanges(len(res.Changes))

	if s.snapshotEnabled && s.snapshots != nil {
		period := types.Period{Year: updatedAt.Year(), Month: int(updatedAt.Month())}
		if err := s.snapshots.Save(ctx, period, res.Entries, res.Summary); err != nil {
			s.logger.Warn(ctx, "snapshot save failed", logger.Error(err))
		}
	}

	s.logger.Debug(ctx, "reconcile pass complete",
		logger.Int("entries", len(res.Entries)),
		logger.Int("placeholders", placeholders),
		logger.Int("changes", len(res.Changes)),
		logger.Duration("took", time.Since(start)),
	)
}

// CurrentState returns the latest board. Staleness reflects feed health at
// read time, and rank-change events disappear once their deadline passes.
func (s *Service) CurrentState() types.BoardState {
	s.mu.RLock()
	state := s.state
	hasState := s.hasState
	deadline := s.changeDeadline
	s.mu.RUnlock()

	if !hasState {
		empty := types.BoardState{IsStale: true}
		if s.feed != nil {
			empty.Health = s.feed.Health()
		}
		return empty
	}
	state.Health = s.feed.Health()
	state.IsStale = !state.Health.Connected
	if state.IsStale {
		metrics.RecordReconcileStale()
	}
	if s.clock.Now().After(deadline) {
		state.Changes = nil
	}
	return state
}

// Subscribe registers a fan-out channel for board states. The returned
// cancel func must be called when the consumer goes away.
func (s *Service) Subscribe() (<-chan types.BoardState, func()) {
	id := uuid.NewString()
	ch := make(chan types.BoardState, defaultSubscriberSlack)

	s.mu.Lock()
	s.subs[id] = ch
	n := len(s.subs)
	s.mu.Unlock()
	metrics.UpdateStreamSubscribers(n)

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		n := len(s.subs)
		s.mu.Unlock()
		metrics.UpdateStreamSubscribers(n)
	}
	return ch, cancel
}

// Healthy reports whether the upstream connection is live.
func (s *Service) Healthy() bool {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	return started && s.feed.Healthy()
}

// Health exposes the feed connection status for the health endpoint.
func (s *Service) Health() types.ConnectionHealth {
	if s.feed == nil {
		return types.ConnectionHealth{}
	}
	return s.feed.Health()
}

// History returns all snapshot periods, newest first.
func (s *Service) History(ctx context.Context) ([]types.Period, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.ListPeriods(ctx)
}

// HistorySnapshot returns one period's snapshot.
func (s *Service) HistorySnapshot(ctx context.Context, period types.Period) (*snapshot.Snapshot, error) {
	if s.snapshots == nil {
		return nil, snapshot.ErrNotFound
	}
	return s.snapshots.Load(ctx, period)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"passes":      s.passCount,
		"subscribers": len(s.subs),
	}
	if s.started {
		stats["feedHealthy"] = s.feed.Healthy()
	}
	if s.hasState {
		stats["entries"] = len(s.state.Entries)
		stats["lastUpdated"] = s.state.UpdatedAt
	}
	if s.roster != nil {
		stats["rosterRecords"] = len(s.roster.Records())
	}
	return stats
}
