// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// AgentID normalizes the upstream feed's identifier field, which arrives as
// either a JSON string or a JSON number depending on the upstream version.
type AgentID string

// UnmarshalJSON accepts both `"42"` and `42`.
func (a *AgentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AgentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = AgentID(n.String())
	return nil
}

func (a AgentID) String() string { return string(a) }

// Participant is one ranked agent as reported by the upstream feed.
// Produced fresh on every successful fetch; immutable per snapshot.
type Participant struct {
	ID                 AgentID `json:"id"`
	Name               string  `json:"name" validate:"required"`
	Rank               int     `json:"rank" validate:"gte=0"`
	Email              string  `json:"email,omitempty"`
	Phone              string  `json:"phone,omitempty"`
	Avatar             string  `json:"avatar,omitempty"`
	ProfilePicture     string  `json:"profile_picture,omitempty"`
	ClosedTransactions int     `json:"closed_transactions" validate:"gte=0"`
	TotalValue         float64 `json:"total_value"`
	TotalCommission    float64 `json:"total_commission"`
	XP                 int     `json:"xp"`
	Level              int     `json:"level"`
	ActiveListings     int     `json:"active_listings,omitempty"`
	Position           string  `json:"position,omitempty"`
	FirstName          string  `json:"first_name,omitempty"`
	LastName           string  `json:"last_name,omitempty"`
}

// SourceStats is the upstream feed's own aggregate block. It is advisory
// only; the reconciler recomputes the summary from the final entry list.
type SourceStats struct {
	TotalAgents        int     `json:"total_agents"`
	ClosedTransactions int     `json:"closed_transactions"`
	TotalValue         float64 `json:"total_value"`
	TotalCommission    float64 `json:"total_commission"`
}

// Board is one parsed, validated upstream payload: the unit that flows from
// the feed manager into reconciliation.
type Board struct {
	Agents    []Participant `json:"agents"`
	Stats     SourceStats   `json:"stats"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Fingerprint is the board's equality contract. Two boards with equal
// fingerprints are treated as the same payload and the feed manager will not
// deliver the second one downstream. The hash covers agents and stats but not
// UpdatedAt, so a keepalive refresh with identical content is still a no-op.
func (b Board) Fingerprint() (uint64, error) {
	view := struct {
		Agents []Participant
		Stats  SourceStats
	}{Agents: b.Agents, Stats: b.Stats}
	return hashstructure.Hash(view, hashstructure.FormatV2, nil)
}

// RosterRecord is a secondary profile from the roster directory, used only
// to fill gaps in the live payload and to source backfill candidates.
type RosterRecord struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Position       string `json:"position,omitempty"`
}

// FullName returns the record's display name, falling back to first+last.
func (r RosterRecord) FullName() string {
	if r.Name != "" {
		return r.Name
	}
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	default:
		return r.LastName
	}
}

// Key returns a stable identifier for the record: the directory id when
// present, otherwise the full name. Used to derive placeholder entry ids.
func (r RosterRecord) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.FullName()
}

// LookupRecord is the single name-match policy for the roster directory.
// Match order: exact full name (case-insensitive), exact first+last,
// first-name equality or prefix. First match wins; no scoring.
func LookupRecord(records []RosterRecord, name, first, last string) (RosterRecord, bool) {
	full := foldName(name)
	if full != "" {
		for _, r := range records {
			if foldName(r.FullName()) == full {
				return r, true
			}
		}
	}
	firstWant := foldName(first)
	lastWant := foldName(last)
	if firstWant != "" && lastWant != "" {
		for _, r := range records {
			if foldName(r.FirstName) == firstWant && foldName(r.LastName) == lastWant {
				return r, true
			}
		}
	}
	if firstWant != "" {
		for _, r := range records {
			rf := foldName(r.FirstName)
			if rf != "" && (rf == firstWant || strings.HasPrefix(rf, firstWant)) {
				return r, true
			}
		}
	}
	return RosterRecord{}, false
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayEntry is the reconciled, renderable unit. Created per reconciliation
// pass and superseded wholesale on the next one.
type DisplayEntry struct {
	ID                 EntryID `json:"id"`
	Name               string  `json:"name"`
	FirstName          string  `json:"first_name,omitempty"`
	LastName           string  `json:"last_name,omitempty"`
	Rank               int     `json:"rank"`
	Email              string  `json:"email,omitempty"`
	Phone              string  `json:"phone,omitempty"`
	Avatar             string  `json:"avatar,omitempty"`
	ProfilePicture     string  `json:"profile_picture,omitempty"`
	Position           string  `json:"position,omitempty"`
	ClosedTransactions int     `json:"closed_transactions"`
	TotalValue         float64 `json:"total_value"`
	TotalCommission    float64 `json:"total_commission"`
	XP                 int     `json:"xp"`
	Level              int     `json:"level"`
	ActiveListings     int     `json:"active_listings,omitempty"`
	Placeholder        bool    `json:"placeholder"`
}

// Summary aggregates the final entry list of a reconciliation pass.
type Summary struct {
	TotalAgents        int           `json:"total_agents"`
	ClosedTransactions int           `json:"closed_transactions"`
	TotalValue         float64       `json:"total_value"`
	TotalCommission    float64       `json:"total_commission"`
	TopPerformer       *DisplayEntry `json:"top_performer,omitempty"`
}

// Direction of a rank movement.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// RankChange records that an entry moved between two consecutive passes.
// Events are ephemeral: consumers read them once to trigger a cue and they
// expire after a short window.
type RankChange struct {
	ID        EntryID   `json:"id"`
	Name      string    `json:"name"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Direction Direction `json:"direction"`
}

// SeatName returns the sentinel display name for the n-th generic
// placeholder seat (1-based).
func SeatName(n int) string {
	return "Open Seat " + strconv.Itoa(n)
}
