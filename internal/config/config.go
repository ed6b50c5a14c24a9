// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Struct fields carry koanf tags matching their env/file keys.
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

// Feed modes supported by the live connection manager.
const (
	ModePoll = "poll"
	ModeSSE  = "sse"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamURL is the leaderboard feed endpoint.
	UpstreamURL string `koanf:"upstream_url"`

	// UpstreamMode selects how the feed is consumed: poll or sse.
	UpstreamMode string `koanf:"upstream_mode"`

	// PollIntervalMS is the polling cadence in poll mode.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// RequestTimeoutMS bounds a single upstream request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// RosterURL is the enrichment directory endpoint.
	RosterURL string `koanf:"roster_url"`

	// RosterTTLHours is how long cached roster data stays fresh.
	RosterTTLHours int `koanf:"roster_ttl_hours"`

	// DataDir is the directory backing the local badger store.
	DataDir string `koanf:"data_dir"`

	// MinVisible is the display floor: the board is padded with
	// placeholders until it holds at least this many entries.
	MinVisible int `koanf:"min_visible"`

	// ReconnectFloorMS and ReconnectCeilingMS bound the feed reconnect backoff.
	ReconnectFloorMS   int `koanf:"reconnect_floor_ms"`
	ReconnectCeilingMS int `koanf:"reconnect_ceiling_ms"`

	// ChangeEventTTLMS is how long rank-change events remain visible.
	ChangeEventTTLMS int `koanf:"change_event_ttl_ms"`

	// SSEKeepaliveMS is the keepalive cadence on the stream endpoint.
	SSEKeepaliveMS int `koanf:"sse_keepalive_ms"`

	// SnapshotEnabled toggles period snapshot writes.
	SnapshotEnabled bool `koanf:"snapshot_enabled"`
}

// New creates a Config with defaults. Loading from file/env happens in Load.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		UpstreamURL:        "http://localhost:9081/api/leaderboard",
		UpstreamMode:       ModePoll,
		PollIntervalMS:     15_000,
		RequestTimeoutMS:   10_000,
		RosterURL:          "http://localhost:9081/api/roster",
		RosterTTLHours:     24,
		DataDir:            "./data",
		MinVisible:         10,
		ReconnectFloorMS:   1_000,
		ReconnectCeilingMS: 30_000,
		ChangeEventTTLMS:   6_000,
		SSEKeepaliveMS:     15_000,
		SnapshotEnabled:    true,
	}
}
