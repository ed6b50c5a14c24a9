// Package reconcile turns a live board and the roster directory into the
// final display list: enriched, backfilled to the display floor, contiguously
// ranked, and diffed against the previous pass for rank movement.
package reconcile

import (
	"sort"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// Default engine configuration constants.
const (
	defaultMinVisible = 10
)

// Directory is the enrichment source the engine matches against. The roster
// store implements it; Roster adapts a plain record slice for callers that
// have no store.
type Directory interface {
	Records() []model.RosterRecord
	Lookup(name, first, last string) (model.RosterRecord, bool)
}

// Roster adapts a record slice into a Directory using the shared match
// policy.
type Roster []model.RosterRecord

func (r Roster) Records() []model.RosterRecord { return r }

func (r Roster) Lookup(name, first, last string) (model.RosterRecord, bool) {
	return model.LookupRecord(r, name, first, last)
}

// Result is the output of one reconciliation pass.
type Result struct {
	Entries []model.DisplayEntry
	Summary model.Summary
	Changes []model.RankChange
}

// Engine performs reconciliation passes. It is synchronous, does no I/O and
// keeps no state between passes; the previous entry list is an input.
type Engine struct {
	minVisible int
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		minVisible: defaultMinVisible,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile produces the new display list from the live board and roster.
//
// Order of operations: sort live by rank, enrich from the roster, backfill to
// the display floor, assign contiguous ranks, diff against prev, summarize.
func (e *Engine) Reconcile(prev []model.DisplayEntry, live []model.Participant, dir Directory) Result {
	if dir == nil {
		dir = Roster(nil)
	}
	entries := e.buildEntries(live, dir)

	// Final contiguous ranks 1..N over live-then-backfill order.
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return Result{
		Entries: entries,
		Summary: summarize(entries),
		Changes: diff(prev, entries),
	}
}

func (e *Engine) buildEntries(live []model.Participant, dir Directory) []model.DisplayEntry {
	sorted := make([]model.Participant, len(live))
	copy(sorted, live)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].Name < sorted[j].Name
	})

	entries := make([]model.DisplayEntry, 0, max(len(sorted), e.minVisible))
	seen := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		seen[foldName(p.Name)] = true
		entries = append(entries, enrich(p, dir))
	}

	switch {
	case len(sorted) == 0:
		// Total upstream outage: show everyone the roster knows about,
		// unranked, rather than capping at the display floor.
		roster := dir.Records()
		entries = append(entries, rosterPlaceholders(roster, seen, len(roster))...)
	case len(sorted) < e.minVisible:
		shortfall := e.minVisible - len(sorted)
		filled := rosterPlaceholders(dir.Records(), seen, shortfall)
		entries = append(entries, filled...)
		for seat := 1; seat <= shortfall-len(filled); seat++ {
			entries = append(entries, seatPlaceholder(seat))
		}
	}

	return entries
}

// enrich fills only the missing avatar/contact fields of a live participant
// from the directory; a present live value is never overwritten.
func enrich(p model.Participant, dir Directory) model.DisplayEntry {
	entry := model.DisplayEntry{
		ID:                 model.LiveID(p.ID),
		Name:               p.Name,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Email:              p.Email,
		Phone:              p.Phone,
		Avatar:             p.Avatar,
		ProfilePicture:     p.ProfilePicture,
		Position:           p.Position,
		ClosedTransactions: p.ClosedTransactions,
		TotalValue:         p.TotalValue,
		TotalCommission:    p.TotalCommission,
		XP:                 p.XP,
		Level:              p.Level,
		ActiveListings:     p.ActiveListings,
	}

	if entry.Avatar != "" && entry.ProfilePicture != "" && entry.Email != "" && entry.Phone != "" && entry.Position != "" {
		return entry
	}
	rec, ok := dir.Lookup(p.Name, p.FirstName, p.LastName)
	if !ok {
		return entry
	}
	if entry.Avatar == "" {
		entry.Avatar = rec.Avatar
	}
	if entry.ProfilePicture == "" {
		entry.ProfilePicture = rec.ProfilePicture
	}
	if entry.Email == "" {
		entry.Email = rec.Email
	}
	if entry.Phone == "" {
		entry.Phone = rec.Phone
	}
	if entry.Position == "" {
		entry.Position = rec.Position
	}
	return entry
}

// rosterPlaceholders converts up to limit roster records not already on the
// board into zero-metric placeholder entries, sorted by name for stable
// identity across passes.
func rosterPlaceholders(roster []model.RosterRecord, seen map[string]bool, limit int) []model.DisplayEntry {
	if limit <= 0 {
		return nil
	}
	candidates := make([]model.RosterRecord, 0, len(roster))
	taken := make(map[string]bool, len(roster))
	for _, rec := range roster {
		name := foldName(rec.FullName())
		if name == "" || seen[name] || taken[name] {
			continue
		}
		taken[name] = true
		candidates = append(candidates, rec)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FullName() < candidates[j].FullName()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	entries := make([]model.DisplayEntry, 0, len(candidates))
	for _, rec := range candidates {
		entries = append(entries, model.DisplayEntry{
			ID:             model.RosterID(rec.Key()),
			Name:           rec.FullName(),
			FirstName:      rec.FirstName,
			LastName:       rec.LastName,
			Email:          rec.Email,
			Phone:          rec.Phone,
			Avatar:         rec.Avatar,
			ProfilePicture: rec.ProfilePicture,
			Position:       rec.Position,
			Placeholder:    true,
		})
	}
	return entries
}

// seatPlaceholder fabricates the generic filler entry for one open seat.
// seat is the position within the backfill sequence, not the list index.
func seatPlaceholder(seat int) model.DisplayEntry {
	return model.DisplayEntry{
		ID:          model.SeatID(seat),
		Name:        model.SeatName(seat),
		Placeholder: true,
	}
}

// diff emits a rank-change event for every identifier present in both lists
// at a different rank. Appearance and disappearance are not changes.
func diff(prev, next []model.DisplayEntry) []model.RankChange {
	if len(prev) == 0 || len(next) == 0 {
		return nil
	}
	old := make(map[model.EntryID]int, len(prev))
	for _, e := range prev {
		old[e.ID] = e.Rank
	}
	var changes []model.RankChange
	for _, e := range next {
		was, ok := old[e.ID]
		if !ok || was == e.Rank {
			continue
		}
		dir := model.DirectionDown
		if e.Rank < was {
			dir = model.DirectionUp
		}
		changes = append(changes, model.RankChange{
			ID:        e.ID,
			Name:      e.Name,
			From:      was,
			To:        e.Rank,
			Direction: dir,
		})
	}
	return changes
}

// summarize recomputes the aggregate block over the final list. Placeholder
// entries carry zero metrics, so they affect the count but not the sums.
func summarize(entries []model.DisplayEntry) model.Summary {
	s := model.Summary{TotalAgents: len(entries)}
	for _, e := range entries {
		s.ClosedTransactions += e.ClosedTransactions
		s.TotalValue += e.TotalValue
		s.TotalCommission += e.TotalCommission
	}
	if len(entries) > 0 {
		top := entries[0]
		s.TopPerformer = &top
	}
	return s
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
