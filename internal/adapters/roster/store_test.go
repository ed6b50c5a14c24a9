package roster_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/adapters/roster"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/retry"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fastPolicy() *retry.Policy {
	return retry.New(
		retry.WithMaxAttempts(3),
		retry.WithBaseDelay(time.Millisecond),
		retry.WithConstantDelay(),
	)
}

func directoryBody(records ...model.RosterRecord) []byte {
	body, _ := json.Marshal(map[string]any{"success": true, "data": records})
	return body
}

// seedCache writes a cache envelope directly, as a previous process run
// would have left it.
func seedCache(t *testing.T, db *badger.DB, fetchedAt time.Time, records []model.RosterRecord) {
	t.Helper()
	env := struct {
		FetchedAt time.Time            `json:"fetched_at"`
		Records   []model.RosterRecord `json:"records"`
	}{FetchedAt: fetchedAt, Records: records}
	data, _ := json.Marshal(env)
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("roster/directory"), data)
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func TestStoreLoad(t *testing.T) {
	convey.Convey("Given a roster store", t, func() {
		ctx := context.Background()

		convey.Convey("When the directory endpoint responds", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(directoryBody(
					model.RosterRecord{ID: "a1", FirstName: "Ada", LastName: "Vance", Email: "ada@example.test"},
					model.RosterRecord{ID: "b2", Name: "Ben Okafor", Phone: "555-0102"},
				))
			}))
			defer srv.Close()

			db := openTestDB(t)
			s := roster.New(db, srv.URL, roster.WithRetryPolicy(fastPolicy()))
			err := s.Load(ctx)

			convey.Convey("Then records should be served from memory", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(s.Records(), convey.ShouldHaveLength, 2)
				convey.So(calls.Load(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then a fresh store on the same cache should not hit the network", func() {
				s2 := roster.New(db, "http://unreachable.invalid", roster.WithRetryPolicy(fastPolicy()))
				err := s2.Load(ctx)

				convey.So(err, convey.ShouldBeNil)
				convey.So(s2.Records(), convey.ShouldHaveLength, 2)
				convey.So(calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the endpoint fails twice then recovers", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= 2 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(directoryBody(model.RosterRecord{Name: "Ada Vance"}))
			}))
			defer srv.Close()

			s := roster.New(openTestDB(t), srv.URL, roster.WithRetryPolicy(fastPolicy()))
			err := s.Load(ctx)

			convey.Convey("Then it should succeed on the third attempt", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(calls.Load(), convey.ShouldEqual, 3)
				convey.So(s.Records(), convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the endpoint reports success false", func() {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"success": false, "data": []}`))
			}))
			defer srv.Close()

			s := roster.New(openTestDB(t), srv.URL, roster.WithRetryPolicy(fastPolicy()))
			err := s.Load(ctx)

			convey.Convey("Then it should fail without retrying", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(calls.Load(), convey.ShouldEqual, 1)
				convey.So(s.Records(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the cache is past half its TTL", func() {
			fc := clockwork.NewFakeClock()
			db := openTestDB(t)
			seedCache(t, db, fc.Now().Add(-13*time.Hour), []model.RosterRecord{{Name: "Old Record"}})

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(directoryBody(model.RosterRecord{Name: "New Record"}))
			}))
			defer srv.Close()

			s := roster.New(db, srv.URL,
				roster.WithRetryPolicy(fastPolicy()),
				roster.WithClock(fc),
				roster.WithTTL(24*time.Hour),
			)
			err := s.Load(ctx)

			convey.Convey("Then it should serve the cache and refresh in the background", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(s.Records()[0].Name, convey.ShouldEqual, "Old Record")

				refreshed := func() bool {
					recs := s.Records()
					return len(recs) == 1 && recs[0].Name == "New Record"
				}
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && !refreshed() {
					time.Sleep(2 * time.Millisecond)
				}
				convey.So(refreshed(), convey.ShouldBeTrue)
				convey.So(calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the cache is expired and the network is down", func() {
			fc := clockwork.NewFakeClock()
			db := openTestDB(t)
			seedCache(t, db, fc.Now().Add(-48*time.Hour), []model.RosterRecord{{Name: "Stale Record"}})

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			s := roster.New(db, srv.URL,
				roster.WithRetryPolicy(retry.New(retry.WithMaxAttempts(1))),
				roster.WithClock(fc),
			)
			err := s.Load(ctx)

			convey.Convey("Then stale records should still be served", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(s.Records(), convey.ShouldHaveLength, 1)
				convey.So(s.Records()[0].Name, convey.ShouldEqual, "Stale Record")
			})
		})

		convey.Convey("When there is no cache and the network is down", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			s := roster.New(openTestDB(t), srv.URL,
				roster.WithRetryPolicy(retry.New(retry.WithMaxAttempts(1))),
			)
			err := s.Load(ctx)

			convey.Convey("Then Load should fail and lookups should find nothing", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(s.Records(), convey.ShouldBeNil)
				_, ok := s.Lookup("Anyone", "", "")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestStoreLookup(t *testing.T) {
	convey.Convey("Given a loaded roster store", t, func() {
		ctx := context.Background()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(directoryBody(
				model.RosterRecord{ID: "a1", Name: "Ada Vance", Email: "ada@example.test"},
				model.RosterRecord{ID: "b2", FirstName: "Benjamin", LastName: "Okafor", Phone: "555-0102"},
				model.RosterRecord{ID: "c3", FirstName: "Carmen", LastName: "Ruiz"},
			))
		}))
		defer srv.Close()

		s := roster.New(openTestDB(t), srv.URL, roster.WithRetryPolicy(fastPolicy()))
		convey.So(s.Load(ctx), convey.ShouldBeNil)

		convey.Convey("When looking up by exact full name", func() {
			r, ok := s.Lookup("ada vance", "", "")

			convey.Convey("Then it should match case-insensitively", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.ID, convey.ShouldEqual, "a1")
			})
		})

		convey.Convey("When looking up by first and last name", func() {
			r, ok := s.Lookup("", "Benjamin", "Okafor")

			convey.Convey("Then it should match the split-name record", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.ID, convey.ShouldEqual, "b2")
			})
		})

		convey.Convey("When only a first-name prefix matches", func() {
			r, ok := s.Lookup("", "Ben", "")

			convey.Convey("Then the prefix stage should find it", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.ID, convey.ShouldEqual, "b2")
			})
		})

		convey.Convey("When nothing matches", func() {
			_, ok := s.Lookup("Zoe Nobody", "Zoe", "Nobody")

			convey.Convey("Then it should report no match", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}
