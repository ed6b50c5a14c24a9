// Package reconcile turns a live board and the roster directory into the
// final display list.
package reconcile

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinVisible sets the display floor: the board is backfilled with
// placeholders until it holds at least this many entries.
func WithMinVisible(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minVisible = n
		}
	}
}
