package retry

import "time"

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the total attempt budget, including the first try.
// Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n >= 1 {
			p.maxAttempts = uint64(n)
		}
	}
}

// WithBaseDelay sets the initial delay between attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.baseDelay = d
		}
	}
}

// WithMaxDelay caps the delay growth for exponential policies.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithConstantDelay switches the policy to a fixed delay between attempts.
func WithConstantDelay() Option {
	return func(p *Policy) {
		p.constant = true
	}
}
