// Package types contains common types used across the application
package types

import (
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// BoardState is the presentation-facing output of a reconciliation pass.
// It is replaced atomically once per pass; IsStale is true when the latest
// cycle failed and older entries are being retained.
type BoardState struct {
	Entries   []model.DisplayEntry `json:"entries"`
	Summary   model.Summary        `json:"summary"`
	Changes   []model.RankChange   `json:"changes"`
	IsStale   bool                 `json:"is_stale"`
	UpdatedAt time.Time            `json:"updated_at"`
	Health    ConnectionHealth     `json:"health"`
}

// ConnectionHealth describes the live feed connection. The backoff delay
// resets to its floor on any successful delivery and doubles, bounded, on
// each consecutive failure.
type ConnectionHealth struct {
	Connected           bool      `json:"connected"`
	Reconnecting        bool      `json:"reconnecting"`
	BackoffMS           int64     `json:"backoff_ms"`
	LastSuccess         time.Time `json:"last_success"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Period identifies one month of snapshot history.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// ParsePeriod parses the YYYY-MM form produced by String.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}
