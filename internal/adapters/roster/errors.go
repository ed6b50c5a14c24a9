package roster

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrFetchFailed reports that the directory endpoint could not be read.
	ErrFetchFailed = errors.New("roster fetch failed")

	// ErrMalformed reports a directory payload that could not be parsed.
	ErrMalformed = errors.New("roster payload malformed")

	// ErrNoData reports that neither the network nor the cache produced
	// any roster records.
	ErrNoData = errors.New("no roster data available")
)
