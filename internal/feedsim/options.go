package feedsim

import "time"

// Option configures a Simulator at construction time.
type Option func(*Simulator, *int)

// WithAgentCount sets how many live agents the simulator serves.
func WithAgentCount(n int) Option {
	return func(_ *Simulator, count *int) {
		if n > 0 {
			*count = n
		}
	}
}

// WithChurnInterval sets how often the board mutates between requests.
func WithChurnInterval(d time.Duration) Option {
	return func(s *Simulator, _ *int) {
		if d > 0 {
			s.churnInterval = d
		}
	}
}

// WithStreamInterval sets the SSE emission cadence.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Simulator, _ *int) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}
