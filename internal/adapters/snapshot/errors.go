package snapshot

import "errors"

// Sentinel kinds for snapshot errors.
var (
	ErrNotFound = errors.New("snapshot not found")
	ErrEncode   = errors.New("snapshot encode failed")
	ErrStorage  = errors.New("snapshot storage failed")
)
