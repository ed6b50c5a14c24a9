package reconcile_test

import (
	"fmt"
	"testing"

	"github.com/okian/podium/internal/domain/model"
	reconcile "github.com/okian/podium/internal/domain/reconcile"
	. "github.com/smartystreets/goconvey/convey"
)

func liveAgents(n int) []model.Participant {
	agents := make([]model.Participant, 0, n)
	for i := 1; i <= n; i++ {
		agents = append(agents, model.Participant{
			ID:                 model.AgentID(fmt.Sprintf("a-%d", i)),
			Name:               fmt.Sprintf("Agent %02d", i),
			Rank:               i,
			ClosedTransactions: i,
			TotalValue:         float64(i) * 1000,
			TotalCommission:    float64(i) * 30,
			XP:                 i * 100,
			Level:              1 + i/5,
		})
	}
	return agents
}

func rosterRecords(n int) reconcile.Roster {
	records := make(reconcile.Roster, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, model.RosterRecord{
			ID:        fmt.Sprintf("r-%d", i),
			Name:      fmt.Sprintf("Roster %02d", i),
			FirstName: "Roster",
			LastName:  fmt.Sprintf("%02d", i),
			Avatar:    fmt.Sprintf("https://cdn.example.com/%d.png", i),
			Email:     fmt.Sprintf("roster%d@example.com", i),
			Position:  "Agent",
		})
	}
	return records
}

func assertContiguousRanks(entries []model.DisplayEntry) {
	for i, e := range entries {
		So(e.Rank, ShouldEqual, i+1)
	}
}

func TestReconcileRanking(t *testing.T) {
	Convey("Given a reconciliation engine", t, func() {
		engine := reconcile.New(reconcile.WithMinVisible(10))

		Convey("When the live feed covers the display floor", func() {
			res := engine.Reconcile(nil, liveAgents(12), rosterRecords(5))

			Convey("Then no placeholder appears", func() {
				So(res.Entries, ShouldHaveLength, 12)
				for _, e := range res.Entries {
					So(e.Placeholder, ShouldBeFalse)
				}
			})

			Convey("And ranks are exactly 1..N", func() {
				assertContiguousRanks(res.Entries)
			})
		})

		Convey("When live ranks arrive out of order with a tie", func() {
			live := []model.Participant{
				{ID: "c", Name: "Cleo", Rank: 2},
				{ID: "b", Name: "Bea", Rank: 1},
				{ID: "d", Name: "Ann", Rank: 2},
			}
			res := engine.Reconcile(nil, live, nil)

			Convey("Then entries are ordered by rank, ties broken by name", func() {
				So(res.Entries[0].Name, ShouldEqual, "Bea")
				So(res.Entries[1].Name, ShouldEqual, "Ann")
				So(res.Entries[2].Name, ShouldEqual, "Cleo")
				assertContiguousRanks(res.Entries)
			})
		})
	})
}

func TestReconcileEnrichment(t *testing.T) {
	Convey("Given a live participant with gaps and a matching roster record", t, func() {
		engine := reconcile.New()
		roster := reconcile.Roster{{
			ID:       "r-1",
			Name:     "Ada Lovelace",
			Avatar:   "https://cdn.example.com/ada.png",
			Email:    "ada@example.com",
			Phone:    "555-0100",
			Position: "Broker",
		}}

		Convey("When the live value is missing", func() {
			live := []model.Participant{{ID: "1", Name: "ada lovelace", Rank: 1}}
			res := engine.Reconcile(nil, live, roster)

			Convey("Then missing fields are filled from the roster", func() {
				So(res.Entries[0].Avatar, ShouldEqual, "https://cdn.example.com/ada.png")
				So(res.Entries[0].Email, ShouldEqual, "ada@example.com")
				So(res.Entries[0].Position, ShouldEqual, "Broker")
			})
		})

		Convey("When the live value is present", func() {
			live := []model.Participant{{ID: "1", Name: "Ada Lovelace", Rank: 1, Avatar: "https://live.example.com/ada.jpg"}}
			res := engine.Reconcile(nil, live, roster)

			Convey("Then the live value is never overwritten", func() {
				So(res.Entries[0].Avatar, ShouldEqual, "https://live.example.com/ada.jpg")
				So(res.Entries[0].Email, ShouldEqual, "ada@example.com")
			})
		})

		Convey("When only first and last name match", func() {
			roster := reconcile.Roster{{ID: "r-2", FirstName: "Grace", LastName: "Hopper", Avatar: "https://cdn.example.com/grace.png"}}
			live := []model.Participant{{ID: "2", Name: "Rear Admiral Grace", FirstName: "Grace", LastName: "Hopper", Rank: 1}}
			res := engine.Reconcile(nil, live, roster)

			Convey("Then the first+last match fills the gap", func() {
				So(res.Entries[0].Avatar, ShouldEqual, "https://cdn.example.com/grace.png")
			})
		})

		Convey("When the directory is a custom implementation", func() {
			dir := &countingDirectory{Roster: roster}
			live := []model.Participant{{ID: "1", Name: "Ada Lovelace", Rank: 1}}
			res := engine.Reconcile(nil, live, dir)

			Convey("Then its lookup is what drives enrichment", func() {
				So(dir.lookups, ShouldEqual, 1)
				So(res.Entries[0].Email, ShouldEqual, "ada@example.com")
			})
		})
	})
}

// countingDirectory counts how often the engine consults the directory.
type countingDirectory struct {
	reconcile.Roster
	lookups int
}

func (d *countingDirectory) Lookup(name, first, last string) (model.RosterRecord, bool) {
	d.lookups++
	return d.Roster.Lookup(name, first, last)
}

func TestReconcileBackfill(t *testing.T) {
	Convey("Given a display floor of 10", t, func() {
		engine := reconcile.New(reconcile.WithMinVisible(10))

		Convey("When 3 live agents and 15 unmatched roster records exist", func() {
			res := engine.Reconcile(nil, liveAgents(3), rosterRecords(15))

			Convey("Then the board holds exactly 10 entries", func() {
				So(res.Entries, ShouldHaveLength, 10)
			})

			Convey("And the first 3 are live, the rest roster placeholders", func() {
				for i, e := range res.Entries {
					if i < 3 {
						So(e.Placeholder, ShouldBeFalse)
						So(e.ID.Kind(), ShouldEqual, model.KindLive)
					} else {
						So(e.Placeholder, ShouldBeTrue)
						So(e.ID.Kind(), ShouldEqual, model.KindRoster)
					}
				}
				assertContiguousRanks(res.Entries)
			})

			Convey("And placeholder metrics are zero", func() {
				for _, e := range res.Entries[3:] {
					So(e.ClosedTransactions, ShouldEqual, 0)
					So(e.TotalValue, ShouldEqual, 0)
					So(e.TotalCommission, ShouldEqual, 0)
				}
			})
		})

		Convey("When roster candidates run out before the floor", func() {
			res := engine.Reconcile(nil, liveAgents(4), rosterRecords(2))

			Convey("Then generic seats fill the remainder with sentinel names", func() {
				So(res.Entries, ShouldHaveLength, 10)
				seats := res.Entries[6:]
				for i, e := range seats {
					So(e.ID, ShouldEqual, model.SeatID(i+1))
					So(e.Name, ShouldEqual, model.SeatName(i+1))
					So(e.Placeholder, ShouldBeTrue)
				}
			})
		})

		Convey("When a roster record matches a live name", func() {
			live := []model.Participant{{ID: "1", Name: "Roster 01", Rank: 1}}
			res := engine.Reconcile(nil, live, rosterRecords(3))

			Convey("Then that record is excluded from the candidate pool", func() {
				for _, e := range res.Entries[1:] {
					So(e.ID, ShouldNotEqual, model.RosterID("r-1"))
				}
			})
		})

		Convey("When the live count meets the floor exactly", func() {
			res := engine.Reconcile(nil, liveAgents(10), rosterRecords(15))

			Convey("Then no backfill occurs regardless of roster availability", func() {
				So(res.Entries, ShouldHaveLength, 10)
				for _, e := range res.Entries {
					So(e.Placeholder, ShouldBeFalse)
				}
			})
		})

		Convey("When the live feed is empty and the roster has 5 records", func() {
			res := engine.Reconcile(nil, nil, rosterRecords(5))

			Convey("Then the whole roster is shown, not just the floor", func() {
				So(res.Entries, ShouldHaveLength, 5)
				for _, e := range res.Entries {
					So(e.Placeholder, ShouldBeTrue)
					So(e.ClosedTransactions, ShouldEqual, 0)
				}
				assertContiguousRanks(res.Entries)
			})
		})

		Convey("When the live feed is empty and no roster exists", func() {
			res := engine.Reconcile(nil, nil, nil)

			Convey("Then the board is empty as the last-resort state", func() {
				So(res.Entries, ShouldBeEmpty)
				So(res.Summary.TotalAgents, ShouldEqual, 0)
				So(res.Summary.TopPerformer, ShouldBeNil)
			})
		})
	})
}

func TestReconcileBackfillStability(t *testing.T) {
	Convey("Given an unchanged shortfall across two passes", t, func() {
		engine := reconcile.New(reconcile.WithMinVisible(10))
		live := liveAgents(4)
		roster := rosterRecords(2)

		first := engine.Reconcile(nil, live, roster)
		second := engine.Reconcile(first.Entries, live, roster)

		Convey("Then placeholder identifiers are identical both times", func() {
			So(second.Entries, ShouldHaveLength, len(first.Entries))
			for i := range first.Entries {
				So(second.Entries[i].ID, ShouldEqual, first.Entries[i].ID)
			}
		})

		Convey("And the second pass emits zero rank changes", func() {
			So(second.Changes, ShouldBeEmpty)
		})
	})
}

func TestReconcileDiff(t *testing.T) {
	Convey("Given two consecutive passes", t, func() {
		engine := reconcile.New(reconcile.WithMinVisible(2))

		Convey("When two entries swap ranks", func() {
			first := engine.Reconcile(nil, []model.Participant{
				{ID: "A", Name: "Alpha", Rank: 1},
				{ID: "B", Name: "Beta", Rank: 2},
			}, nil)
			second := engine.Reconcile(first.Entries, []model.Participant{
				{ID: "B", Name: "Beta", Rank: 1},
				{ID: "A", Name: "Alpha", Rank: 2},
			}, nil)

			Convey("Then exactly two events are emitted", func() {
				So(second.Changes, ShouldHaveLength, 2)

				byID := map[model.EntryID]model.RankChange{}
				for _, c := range second.Changes {
					byID[c.ID] = c
				}
				a := byID[model.LiveID("A")]
				So(a.From, ShouldEqual, 1)
				So(a.To, ShouldEqual, 2)
				So(a.Direction, ShouldEqual, model.DirectionDown)

				b := byID[model.LiveID("B")]
				So(b.From, ShouldEqual, 2)
				So(b.To, ShouldEqual, 1)
				So(b.Direction, ShouldEqual, model.DirectionUp)
			})
		})

		Convey("When an entry appears and another disappears", func() {
			first := engine.Reconcile(nil, []model.Participant{
				{ID: "A", Name: "Alpha", Rank: 1},
				{ID: "B", Name: "Beta", Rank: 2},
			}, nil)
			second := engine.Reconcile(first.Entries, []model.Participant{
				{ID: "A", Name: "Alpha", Rank: 1},
				{ID: "C", Name: "Gamma", Rank: 2},
			}, nil)

			Convey("Then no event is emitted for either", func() {
				So(second.Changes, ShouldBeEmpty)
			})
		})

		Convey("When the same payload is fed twice", func() {
			live := liveAgents(5)
			first := engine.Reconcile(nil, live, nil)
			second := engine.Reconcile(first.Entries, live, nil)

			Convey("Then the second pass is idempotent", func() {
				So(second.Changes, ShouldBeEmpty)
				So(second.Entries, ShouldResemble, first.Entries)
			})
		})
	})
}

func TestReconcileSummary(t *testing.T) {
	Convey("Given a pass with live entries and placeholders", t, func() {
		engine := reconcile.New(reconcile.WithMinVisible(5))
		res := engine.Reconcile(nil, liveAgents(3), rosterRecords(4))

		Convey("Then the summary is recomputed over the final list", func() {
			So(res.Summary.TotalAgents, ShouldEqual, 5)
			So(res.Summary.ClosedTransactions, ShouldEqual, 1+2+3)
			So(res.Summary.TotalValue, ShouldEqual, 1000+2000+3000)
			So(res.Summary.TotalCommission, ShouldEqual, 30+60+90)
		})

		Convey("And the top performer is rank 1 of the final list", func() {
			So(res.Summary.TopPerformer, ShouldNotBeNil)
			So(res.Summary.TopPerformer.Rank, ShouldEqual, 1)
			So(res.Summary.TopPerformer.ID, ShouldEqual, model.LiveID("a-1"))
		})
	})
}
