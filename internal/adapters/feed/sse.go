package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// maxLineBytes bounds a single stream line; payloads arrive as one data line.
const maxLineBytes = 8 << 20

// SSEClient consumes a text/event-stream endpoint and implements Streamer.
type SSEClient struct {
	url        string
	httpClient *http.Client
	logger     logger.Logger
}

// NewSSEClient creates a stream consumer for the given endpoint.
func NewSSEClient(url string, opts ...SSEOption) *SSEClient {
	c := &SSEClient{
		url:        url,
		httpClient: http.DefaultClient,
		logger:     logger.Get().Named("sse"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream connects and parses events until the connection drops or ctx is
// done. Comment lines (keepalives) are skipped; a data block that fails to
// parse is logged and skipped without dropping the connection.
func (c *SSEClient) Stream(ctx context.Context, deliver func(model.Board)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrStreamStatus, resp.StatusCode)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		return fmt.Errorf("%w: unexpected content type %q", ErrStreamStatus, resp.Header.Get("Content-Type"))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)

	var (
		event string
		data  strings.Builder
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(ctx, event, data.String(), deliver)
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	return ErrStreamClosed
}

func (c *SSEClient) dispatch(ctx context.Context, event, data string, deliver func(model.Board)) {
	// Board payloads arrive under several event names depending on the
	// upstream version; unnamed and "message" events carry them too.
	switch event {
	case "", "message", "board", "leaderboard":
	default:
		return
	}
	var b model.Board
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		c.logger.Warn(ctx, "skipping malformed stream payload", logger.Error(err))
		return
	}
	deliver(b)
}
