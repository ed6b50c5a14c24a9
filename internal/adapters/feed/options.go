package feed

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Option configures a Manager.
type Option func(*Manager)

// WithMode selects the connection mode: ModePoll or ModeSSE.
func WithMode(mode string) Option {
	return func(m *Manager) {
		m.mode = mode
	}
}

// WithFetcher sets the polling source.
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// WithStreamer sets the push source.
func WithStreamer(s Streamer) Option {
	return func(m *Manager) {
		m.streamer = s
	}
}

// WithPollInterval sets the polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithBackoff bounds the reconnect delay: it starts at floor, doubles per
// consecutive failure, and never exceeds ceiling.
func WithBackoff(floor, ceiling time.Duration) Option {
	return func(m *Manager) {
		if floor > 0 {
			m.floor = floor
		}
		if ceiling >= m.floor {
			m.ceiling = ceiling
		}
	}
}

// WithClock injects the clock used for all waits. Tests pass a fake.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithUpdateBuffer sets the Updates channel capacity.
func WithUpdateBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.updates = make(chan model.Board, n)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// SSEOption configures an SSEClient.
type SSEOption func(*SSEClient)

// WithSSEHTTPClient replaces the underlying http.Client.
func WithSSEHTTPClient(hc *http.Client) SSEOption {
	return func(c *SSEClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSSELogger sets a custom logger on the stream consumer.
func WithSSELogger(l logger.Logger) SSEOption {
	return func(c *SSEClient) {
		if l != nil {
			c.logger = l
		}
	}
}
