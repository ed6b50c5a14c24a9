package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/adapters/snapshot"
	"github.com/okian/podium/internal/domain/reconcile"
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFeed sets the live payload source. Required.
func WithFeed(f Feed) Option {
	return func(s *Service) {
		s.feed = f
	}
}

// WithRoster sets the enrichment directory.
func WithRoster(r Roster) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// WithEngine replaces the reconciliation engine.
func WithEngine(e *reconcile.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithSnapshots sets the period snapshot store.
func WithSnapshots(st snapshot.Store) Option {
	return func(s *Service) {
		s.snapshots = st
	}
}

// WithSnapshotsEnabled toggles per-pass snapshot writes.
func WithSnapshotsEnabled(v bool) Option {
	return func(s *Service) {
		s.snapshotEnabled = v
	}
}

// WithChangeEventTTL sets how long rank-change events stay visible in reads.
func WithChangeEventTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.changeTTL = d
		}
	}
}

// WithClock injects the clock used for change-event deadlines. Tests pass
// a fake.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
