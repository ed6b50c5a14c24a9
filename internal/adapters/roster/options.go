package roster

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/retry"
)

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithTTL sets how long cached roster data stays fresh.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithFetchTimeout bounds a single directory request.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRetryPolicy replaces the retry policy used across attempts.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(s *Store) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithClock injects the clock used for cache-age decisions. Tests pass a fake.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
