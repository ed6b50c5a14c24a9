// Package snapshot persists reconciled boards keyed by month.
//
// One record per period: every successful pass overwrites the current month,
// so the stored entry is always the latest reconciled board for that month.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const keyPrefix = "board/"

// Snapshot is one persisted board for one period.
type Snapshot struct {
	Period  types.Period         `json:"period"`
	Entries []model.DisplayEntry `json:"entries"`
	Summary model.Summary        `json:"summary"`
	SavedAt time.Time            `json:"saved_at"`
}

// Store provides read/write access to period snapshots.
type Store interface {
	// Save overwrites the snapshot for the given period.
	Save(ctx context.Context, period types.Period, entries []model.DisplayEntry, summary model.Summary) error

	// Load returns the snapshot for a period.
	// Returns ErrNotFound if no snapshot exists for it.
	Load(ctx context.Context, period types.Period) (*Snapshot, error)

	// ListPeriods returns all periods with a snapshot, newest first.
	ListPeriods(ctx context.Context) ([]types.Period, error)
}

// BadgerStore implements Store on a shared badger DB.
type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

// New creates a BadgerStore. The DB is owned by the caller.
func New(db *badger.DB, opts ...Option) *BadgerStore {
	s := &BadgerStore{
		db:     db,
		logger: logger.Get().Named("snapshot"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites the snapshot for the given period.
func (s *BadgerStore) Save(ctx context.Context, period types.Period, entries []model.DisplayEntry, summary model.Summary) error {
	snap := Snapshot{
		Period:  period,
		Entries: entries,
		Summary: summary,
		SavedAt: time.Now(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordSnapshotWriteError()
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+period.String()), data)
	})
	if err != nil {
		metrics.RecordSnapshotWriteError()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	metrics.RecordSnapshotWrite()
	s.logger.Debug(ctx, "snapshot saved",
		logger.String("period", period.String()),
		logger.Int("entries", len(entries)),
	)
	return nil
}

// Load returns the snapshot for a period.
func (s *BadgerStore) Load(_ context.Context, period types.Period) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + period.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &snap, nil
}

// ListPeriods returns all periods with a snapshot, newest first.
func (s *BadgerStore) ListPeriods(_ context.Context) ([]types.Period, error) {
	var periods []types.Period
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(keyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			p, err := types.ParsePeriod(key[len(keyPrefix):])
			if err != nil {
				// Foreign key under our prefix; skip rather than fail the listing.
				continue
			}
			periods = append(periods, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year != periods[j].Year {
			return periods[i].Year > periods[j].Year
		}
		return periods[i].Month > periods[j].Month
	})
	return periods, nil
}
