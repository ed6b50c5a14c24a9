package feed

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrClosed reports use of a manager after Close.
	ErrClosed = errors.New("feed manager closed")

	// ErrNotStarted reports Close before Start.
	ErrNotStarted = errors.New("feed manager not started")

	// ErrUnknownMode reports an unrecognized feed mode.
	ErrUnknownMode = errors.New("unknown feed mode")

	// ErrStreamStatus reports a stream endpoint that refused the connection.
	ErrStreamStatus = errors.New("stream returned error status")

	// ErrStreamClosed reports a stream that ended from the server side.
	ErrStreamClosed = errors.New("stream closed by server")
)
