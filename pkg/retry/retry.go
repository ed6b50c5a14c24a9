// Package retry provides the single retry policy used by outbound adapters.
//
// A Policy describes attempt count and delay shape once; callers hand it an
// operation and get uniform backoff behavior instead of bespoke loops.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
)

// Policy is an immutable retry configuration. Safe for concurrent use.
type Policy struct {
	maxAttempts uint64
	baseDelay   time.Duration
	maxDelay    time.Duration
	constant    bool
}

// New creates a Policy with defaults: 3 attempts, exponential delays
// starting at 500ms and doubling.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify is called after each failed attempt with the error and the delay
// before the next attempt.
type Notify func(err error, next time.Duration)

// Do runs op until it succeeds, returns a permanent error, the attempt
// budget is spent, or ctx is done.
func (p *Policy) Do(ctx context.Context, op func() error, notify Notify) error {
	var b backoff.BackOff
	if p.constant {
		b = backoff.NewConstantBackOff(p.baseDelay)
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.baseDelay
		eb.Multiplier = 2
		eb.MaxInterval = p.maxDelay
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0
		b = eb
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, p.maxAttempts-1), ctx)
	if notify == nil {
		return backoff.Retry(op, b)
	}
	return backoff.RetryNotify(op, b, backoff.Notify(notify))
}

// Permanent marks err as non-retryable: Do stops immediately and returns it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
