package service

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrNoFeed reports Start without a configured feed.
	ErrNoFeed = errors.New("service requires a feed")
)
