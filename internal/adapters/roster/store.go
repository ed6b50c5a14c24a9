// Package roster loads and caches the enrichment directory.
//
// The directory is secondary data: it fills profile gaps in the live payload
// and supplies backfill candidates, nothing more. The store therefore never
// blocks its callers on the network. Before the first successful load,
// lookups simply return no match.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"github.com/okian/podium/pkg/retry"
)

// Default store configuration constants.
const (
	defaultTTL          = 24 * time.Hour
	defaultFetchTimeout = 10 * time.Second
	defaultRetryDelay   = 2 * time.Second
	defaultMaxAttempts  = 3

	cacheKey     = "roster/directory"
	maxBodyBytes = 8 << 20
)

// envelope is the cache record persisted in badger.
type envelope struct {
	FetchedAt time.Time            `json:"fetched_at"`
	Records   []model.RosterRecord `json:"records"`
}

// directoryResponse is the wire shape of the directory endpoint.
type directoryResponse struct {
	Success bool                 `json:"success"`
	Data    []model.RosterRecord `json:"data"`
}

// Store serves roster records from memory, backed by a durable badger cache.
type Store struct {
	url          string
	httpClient   *http.Client
	db           *badger.DB
	ttl          time.Duration
	fetchTimeout time.Duration
	policy       *retry.Policy
	clock        clockwork.Clock
	logger       logger.Logger

	mu         sync.RWMutex
	records    []model.RosterRecord
	fetchedAt  time.Time
	refreshing bool
}

// New creates a Store. The badger DB is shared with other adapters and owned
// by the caller.
func New(db *badger.DB, url string, opts ...Option) *Store {
	s := &Store{
		url:          url,
		httpClient:   http.DefaultClient,
		db:           db,
		ttl:          defaultTTL,
		fetchTimeout: defaultFetchTimeout,
		policy: retry.New(
			retry.WithMaxAttempts(defaultMaxAttempts),
			retry.WithBaseDelay(defaultRetryDelay),
			retry.WithConstantDelay(),
		),
		clock:  clockwork.NewRealClock(),
		logger: logger.Get().Named("roster"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load primes the store: cache first, network only when the cache is missing
// or expired. A cache older than half the TTL is served as-is while a
// background refresh runs.
func (s *Store) Load(ctx context.Context) error {
	if env, err := s.readCache(); err == nil {
		age := s.clock.Since(env.FetchedAt)
		if age < s.ttl {
			s.setRecords(env.Records, env.FetchedAt)
			metrics.UpdateRosterCacheAge(age.Seconds())
			if age > s.ttl/2 {
				s.refreshAsync(ctx)
			}
			return nil
		}
		// Expired cache still beats nothing if the refresh fails below.
		s.setRecords(env.Records, env.FetchedAt)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		s.logger.Warn(ctx, "roster cache unreadable", logger.Error(err))
	}

	if err := s.refresh(ctx); err != nil {
		if len(s.Records()) > 0 {
			s.logger.Warn(ctx, "refresh failed, serving stale roster", logger.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// Records returns the current roster, or nil before the first load.
func (s *Store) Records() []model.RosterRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// FetchedAt returns when the current roster was fetched.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Lookup finds a roster record for a live participant using the directory's
// match policy (model.LookupRecord).
func (s *Store) Lookup(name, first, last string) (model.RosterRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.LookupRecord(s.records, name, first, last)
}

func (s *Store) refresh(ctx context.Context) error {
	var fetched []model.RosterRecord
	op := func() error {
		recs, err := s.fetchOnce(ctx)
		if err != nil {
			return err
		}
		fetched = recs
		return nil
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn(ctx, "roster fetch failed, retrying",
			logger.Error(err),
			logger.Duration("next_attempt_in", next),
		)
	}
	if err := s.policy.Do(ctx, op, notify); err != nil {
		metrics.RecordRosterRefresh("error")
		return err
	}

	now := s.clock.Now()
	s.setRecords(fetched, now)
	if err := s.writeCache(envelope{FetchedAt: now, Records: fetched}); err != nil {
		s.logger.Warn(ctx, "roster cache write failed", logger.Error(err))
	}
	metrics.RecordRosterRefresh("success")
	metrics.UpdateRosterRecords(len(fetched))
	metrics.UpdateRosterCacheAge(0)
	return nil
}

// refreshAsync runs a refresh in the background; failures only log.
func (s *Store) refreshAsync(ctx context.Context) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.refreshing = false
			s.mu.Unlock()
		}()
		if err := s.refresh(ctx); err != nil {
			s.logger.Warn(ctx, "background roster refresh failed", logger.Error(err))
		}
	}()
}

func (s *Store) fetchOnce(ctx context.Context) ([]model.RosterRecord, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %w", ErrFetchFailed, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	var dr directoryResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %w", ErrMalformed, err))
	}
	if !dr.Success {
		return nil, retry.Permanent(fmt.Errorf("%w: endpoint reported failure", ErrMalformed))
	}
	return dr.Data, nil
}

func (s *Store) setRecords(recs []model.RosterRecord, at time.Time) {
	s.mu.Lock()
	s.records = recs
	s.fetchedAt = at
	s.mu.Unlock()
	metrics.UpdateRosterRecords(len(recs))
}

func (s *Store) readCache() (envelope, error) {
	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	return env, err
}

func (s *Store) writeCache(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cacheKey), data)
	})
}

