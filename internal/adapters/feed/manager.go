// Package feed keeps a live connection to the upstream leaderboard and turns
// it into a channel of distinct payloads.
//
// Two modes are supported: polling the fetch endpoint on a fixed cadence, and
// consuming a server-sent-events stream. Either way the manager owns the
// reconnect backoff and payload de-duplication, so downstream consumers only
// ever see boards that actually changed.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/adapters/upstream"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Modes the manager can run in.
const (
	ModePoll = "poll"
	ModeSSE  = "sse"
)

// Default manager configuration constants.
const (
	defaultPollInterval   = 15 * time.Second
	defaultBackoffFloor   = time.Second
	defaultBackoffCeiling = 30 * time.Second
	defaultUpdateBuffer   = 8
)

// Fetcher is the polling source: one conditional fetch per call.
type Fetcher interface {
	FetchLatest(ctx context.Context, etag string) (*model.Board, string, error)
}

// Streamer is the push source: Stream blocks, invoking deliver for each
// payload, until the connection drops or ctx is done.
type Streamer interface {
	Stream(ctx context.Context, deliver func(model.Board)) error
}

// Manager runs the connection loop and fans payloads into Updates.
type Manager struct {
	mode         string
	fetcher      Fetcher
	streamer     Streamer
	pollInterval time.Duration
	floor        time.Duration
	ceiling      time.Duration
	clock        clockwork.Clock
	logger       logger.Logger

	updates chan model.Board

	mu           sync.RWMutex
	healthy      bool
	currentDelay time.Duration
	lastSuccess  time.Time
	failures     int
	etag         string
	lastHash     uint64
	hasHash      bool
	started      bool
	cancel       context.CancelFunc
	done         chan struct{}
	closeOnce    sync.Once
}

// New creates a Manager. The mode decides which source is used: poll needs a
// Fetcher, sse needs a Streamer.
func New(opts ...Option) *Manager {
	m := &Manager{
		mode:         ModePoll,
		pollInterval: defaultPollInterval,
		floor:        defaultBackoffFloor,
		ceiling:      defaultBackoffCeiling,
		clock:        clockwork.NewRealClock(),
		logger:       logger.Get().Named("feed"),
		updates:      make(chan model.Board, defaultUpdateBuffer),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the connection loop. It returns immediately; payloads
// arrive on Updates.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrClosed
	}
	switch m.mode {
	case ModePoll:
		if m.fetcher == nil {
			return errors.New("poll mode requires a fetcher")
		}
	case ModeSSE:
		if m.streamer == nil {
			return errors.New("sse mode requires a streamer")
		}
	default:
		return ErrUnknownMode
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.started = true
	m.currentDelay = m.floor
	m.cancel = cancel

	go func() {
		defer close(m.done)
		if m.mode == ModePoll {
			m.runPoll(runCtx)
		} else {
			m.runStream(runCtx)
		}
	}()
	return nil
}

// Updates returns the channel of distinct payloads. The channel is closed
// by Close.
func (m *Manager) Updates() <-chan model.Board {
	return m.updates
}

// Healthy reports whether the last contact with upstream succeeded.
func (m *Manager) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// Health returns the full connection status: whether the feed is connected
// or reconnecting, the current backoff delay, and how long the failure
// streak is.
func (m *Manager) Health() types.ConnectionHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.ConnectionHealth{
		Connected:           m.healthy,
		Reconnecting:        m.started && !m.healthy,
		BackoffMS:           m.currentDelay.Milliseconds(),
		LastSuccess:         m.lastSuccess,
		ConsecutiveFailures: m.failures,
	}
}

// Close stops the connection loop and waits for it to finish. After Close
// returns, no more payloads are delivered and Updates is closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	started := m.started
	cancel := m.cancel
	m.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	m.closeOnce.Do(func() {
		cancel()
		<-m.done
		close(m.updates)
		metrics.UpdateFeedConnected(false)
	})
	return nil
}

func (m *Manager) runPoll(ctx context.Context) {
	delay := m.floor
	for {
		board, etag, err := m.fetchCurrent(ctx)
		switch {
		case err == nil:
			m.markSuccess()
			m.setETag(etag)
			delay = m.floor
			m.deliver(ctx, *board)
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
		case errors.Is(err, upstream.ErrNotModified):
			// Unchanged payload: nothing to deliver, but upstream is alive.
			m.markSuccess()
			delay = m.floor
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
		case ctx.Err() != nil:
			return
		default:
			m.markFailure(delay)
			metrics.RecordFeedReconnect()
			metrics.UpdateFeedBackoffDelay(float64(delay.Milliseconds()))
			m.logger.Warn(ctx, "poll failed, backing off",
				logger.Error(err),
				logger.Duration("delay", delay),
			)
			if !m.sleep(ctx, delay) {
				return
			}
			delay = nextDelay(delay, m.ceiling)
		}
	}
}

func (m *Manager) runStream(ctx context.Context) {
	delay := m.floor
	for {
		if ctx.Err() != nil {
			return
		}
		err := m.streamer.Stream(ctx, func(b model.Board) {
			m.markSuccess()
			delay = m.floor
			m.deliver(ctx, b)
		})
		if ctx.Err() != nil {
			return
		}
		m.markFailure(delay)
		metrics.RecordFeedReconnect()
		metrics.UpdateFeedBackoffDelay(float64(delay.Milliseconds()))
		m.logger.Warn(ctx, "stream dropped, reconnecting",
			logger.Error(err),
			logger.Duration("delay", delay),
		)
		if !m.sleep(ctx, delay) {
			return
		}
		delay = nextDelay(delay, m.ceiling)
	}
}

func (m *Manager) fetchCurrent(ctx context.Context) (*model.Board, string, error) {
	m.mu.RLock()
	etag := m.etag
	m.mu.RUnlock()
	return m.fetcher.FetchLatest(ctx, etag)
}

// deliver pushes the board downstream unless its fingerprint matches the
// previous delivery.
func (m *Manager) deliver(ctx context.Context, b model.Board) {
	hash, err := b.Fingerprint()
	if err == nil {
		m.mu.Lock()
		dup := m.hasHash && m.lastHash == hash
		if !dup {
			m.lastHash = hash
			m.hasHash = true
		}
		m.mu.Unlock()
		if dup {
			metrics.RecordFeedPayloadDeduped()
			return
		}
	} else {
		m.logger.Warn(ctx, "fingerprint failed, delivering anyway", logger.Error(err))
	}

	select {
	case m.updates <- b:
		metrics.RecordFeedPayloadDelivered()
	case <-ctx.Done():
	}
}

func (m *Manager) markSuccess() {
	m.mu.Lock()
	m.healthy = true
	m.failures = 0
	m.currentDelay = m.floor
	m.lastSuccess = m.clock.Now()
	m.mu.Unlock()
	metrics.UpdateFeedConnected(true)
}

func (m *Manager) markFailure(delay time.Duration) {
	m.mu.Lock()
	m.healthy = false
	m.failures++
	m.currentDelay = delay
	m.mu.Unlock()
	metrics.UpdateFeedConnected(false)
}

func (m *Manager) setETag(etag string) {
	m.mu.Lock()
	m.etag = etag
	m.mu.Unlock()
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.clock.After(d):
		return true
	}
}

func nextDelay(cur, ceiling time.Duration) time.Duration {
	next := cur * 2
	if next > ceiling {
		return ceiling
	}
	return next
}
