// Package feedsim is a development-time fake of the upstream leaderboard.
//
// It serves the same wire schema as the real feed, honors If-None-Match with
// a version-based ETag, churns ranks between requests, and exposes an SSE
// endpoint so both connection modes can be exercised locally.
package feedsim

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/model"
)

// Default simulator configuration constants.
const (
	defaultAgentCount     = 14
	defaultChurnInterval  = 10 * time.Second
	defaultStreamInterval = 5 * time.Second
)

var firstNames = []string{
	"Ada", "Ben", "Carmen", "Dmitri", "Elena", "Farid", "Grace", "Hugo",
	"Imani", "Jonas", "Keiko", "Luca", "Mara", "Noor", "Otto", "Priya",
}

var lastNames = []string{
	"Vance", "Okafor", "Ruiz", "Sokolov", "Marchetti", "Haddad", "Lindqvist",
	"Baumann", "Njoku", "Petersen", "Tanaka", "Moretti", "Kovacs", "Rahman",
	"Weiss", "Sharma",
}

// Simulator holds the fake board and hands out versioned payloads.
type Simulator struct {
	mu             sync.Mutex
	agents         []model.Participant
	roster         []model.RosterRecord
	version        int
	lastChurn      time.Time
	churnInterval  time.Duration
	streamInterval time.Duration
}

// New creates a Simulator with a generated agent pool.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		churnInterval:  defaultChurnInterval,
		streamInterval: defaultStreamInterval,
	}
	count := defaultAgentCount
	for _, opt := range opts {
		opt(s, &count)
	}
	s.seed(count)
	return s
}

// seed builds the agent pool and a roster covering roughly half of it plus
// some extra bench names for backfill testing.
func (s *Simulator) seed(count int) {
	for i := 0; i < count; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i*7+3)%len(lastNames)]
		name := first + " " + last
		s.agents = append(s.agents, model.Participant{
			ID:                 model.AgentID(strconv.Itoa(1000 + i)),
			Name:               name,
			FirstName:          first,
			LastName:           last,
			Rank:               i + 1,
			ClosedTransactions: randomInt(12),
			TotalValue:         float64(randomInt(2_000_000)),
			TotalCommission:    float64(randomInt(60_000)),
			XP:                 randomInt(5000),
			Level:              1 + randomInt(9),
		})
		if i%2 == 0 {
			s.roster = append(s.roster, model.RosterRecord{
				ID:        uuid.NewString(),
				FirstName: first,
				LastName:  last,
				Email:     fmt.Sprintf("%s.%s@example.test", first, last),
				Phone:     fmt.Sprintf("555-01%02d", i),
				Avatar:    fmt.Sprintf("https://avatars.example.test/%d.png", i),
				Position:  "Agent",
			})
		}
	}
	// Bench names that never appear live, so backfill has candidates.
	for i := 0; i < count/2; i++ {
		first := firstNames[(i*5+1)%len(firstNames)]
		last := lastNames[(i*11+5)%len(lastNames)]
		s.roster = append(s.roster, model.RosterRecord{
			ID:       uuid.NewString(),
			Name:     first + " Bench-" + last,
			Email:    fmt.Sprintf("bench.%d@example.test", i),
			Position: "Agent",
		})
	}
	s.version = 1
	s.lastChurn = time.Now()
	s.sortAndRank()
}

// Handler returns the simulator's HTTP surface.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/roster", s.handleRoster)
	mux.HandleFunc("/api/stream", s.handleStream)
	return mux
}

func (s *Simulator) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, etag := s.currentBoard()
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data": map[string]any{
			"agents": board.Agents,
			"stats":  board.Stats,
		},
		"meta": map[string]any{
			"count":      len(board.Agents),
			"updated_at": board.UpdatedAt,
		},
	})
}

func (s *Simulator) handleRoster(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	roster := make([]model.RosterRecord, len(s.roster))
	copy(roster, s.roster)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    roster,
	})
}

func (s *Simulator) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	emit := func() bool {
		board, _ := s.currentBoard()
		data, err := json.Marshal(board)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: board\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !emit() {
				return
			}
		}
	}
}

// currentBoard churns if the interval elapsed and returns the payload with
// its ETag.
func (s *Simulator) currentBoard() (model.Board, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastChurn) >= s.churnInterval {
		s.churnLocked()
	}

	agents := make([]model.Participant, len(s.agents))
	copy(agents, s.agents)

	stats := model.SourceStats{TotalAgents: len(agents)}
	for _, a := range agents {
		stats.ClosedTransactions += a.ClosedTransactions
		stats.TotalValue += a.TotalValue
		stats.TotalCommission += a.TotalCommission
	}
	board := model.Board{
		Agents:    agents,
		Stats:     stats,
		UpdatedAt: time.Now(),
	}
	return board, fmt.Sprintf(`"v%d"`, s.version)
}

// Churn forces a board mutation regardless of the interval.
func (s *Simulator) Churn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.churnLocked()
}

// churnLocked bumps one random agent's numbers so ranks move.
func (s *Simulator) churnLocked() {
	if len(s.agents) == 0 {
		return
	}
	i := randomInt(len(s.agents))
	s.agents[i].ClosedTransactions += 1 + randomInt(3)
	s.agents[i].TotalValue += float64(100_000 + randomInt(400_000))
	s.agents[i].TotalCommission += float64(3_000 + randomInt(12_000))
	s.agents[i].XP += 50 + randomInt(250)

	s.sortAndRank()
	s.version++
	s.lastChurn = time.Now()
}

func (s *Simulator) sortAndRank() {
	for i := 1; i < len(s.agents); i++ {
		for j := i; j > 0 && s.agents[j].TotalValue > s.agents[j-1].TotalValue; j-- {
			s.agents[j], s.agents[j-1] = s.agents[j-1], s.agents[j]
		}
	}
	for i := range s.agents {
		s.agents[i].Rank = i + 1
	}
}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}
