// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/podium/internal/domain/types"
)

// defaultKeepalive is the comment-ping cadence on the stream.
const defaultKeepalive = 15 * time.Second

// StreamDependencies is the subset of Dependencies streaming uses.
type StreamDependencies interface {
	CurrentState() types.BoardState
	Subscribe() (<-chan types.BoardState, func())
}

// StreamHandler serves board updates as server-sent events.
type StreamHandler struct {
	deps      StreamDependencies
	keepalive time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{
		deps:      deps,
		keepalive: defaultKeepalive,
	}
}

// HandleStream handles GET /stream requests. Every reconcile pass produces a
// `board` event; when the pass moved anyone, a `rankchange` event follows.
// Comment pings keep idle proxies from cutting the connection.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported",
			NewKind("api.stream", ErrStreamingUnsupported))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// New viewers get the current board immediately.
	if err := writeEvent(w, "board", h.deps.CurrentState()); err != nil {
		return
	}
	flusher.Flush()

	updates, cancel := h.deps.Subscribe()
	defer cancel()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, "board", state); err != nil {
				return
			}
			if len(state.Changes) > 0 {
				if err := writeEvent(w, "rankchange", state.Changes); err != nil {
					return
				}
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
