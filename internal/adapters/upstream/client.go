// Package upstream fetches the live leaderboard payload over HTTP.
//
// The client is stateless beyond its configuration: conditional-fetch state
// (the etag) belongs to the caller, which passes it back in on every call.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"github.com/okian/podium/pkg/retry"
)

const (
	defaultTimeout = 10 * time.Second

	// maxBodyBytes bounds how much of a response body we are willing to read.
	maxBodyBytes = 8 << 20
)

// feedEnvelope is the wire shape of the feed endpoint.
type feedEnvelope struct {
	Success bool      `json:"success"`
	Data    *feedData `json:"data,omitempty"`
	Meta    *feedMeta `json:"meta,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type feedData struct {
	Agents []model.Participant `json:"agents" validate:"dive"`
	Stats  model.SourceStats   `json:"stats"`
}

type feedMeta struct {
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client fetches leaderboard payloads from the configured endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	policy     *retry.Policy
	validate   *validator.Validate
	logger     logger.Logger
}

// New creates a Client for the given endpoint.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		policy:     retry.New(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.Get().Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatest performs a conditional GET against the feed endpoint.
//
// A 304 response returns ErrNotModified and the caller's etag unchanged.
// Everything else that fails (timeout, transport, any non-2xx status,
// malformed payload) is transient and retried per the client's policy; only
// 304 and context cancellation stop the attempts early.
func (c *Client) FetchLatest(ctx context.Context, etag string) (*model.Board, string, error) {
	var (
		board   *model.Board
		newETag string
	)

	op := func() error {
		b, e, err := c.fetchOnce(ctx, etag)
		if err != nil {
			return err
		}
		board, newETag = b, e
		return nil
	}
	notify := func(err error, next time.Duration) {
		metrics.RecordFetchRetry()
		c.logger.Warn(ctx, "fetch failed, retrying",
			logger.Error(err),
			logger.Duration("next_attempt_in", next),
		)
	}

	start := time.Now()
	err := c.policy.Do(ctx, op, notify)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.RecordFetch("success")
		return board, newETag, nil
	case errors.Is(err, ErrNotModified):
		metrics.RecordFetchNotModified()
		return nil, etag, ErrNotModified
	default:
		metrics.RecordFetch("error")
		return nil, etag, err
	}
}

// fetchOnce is a single attempt. Retryable failures come back plain;
// non-retryable ones are marked permanent so the policy stops.
func (c *Client) fetchOnce(ctx context.Context, etag string) (*model.Board, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		if ctx.Err() != nil {
			return nil, "", retry.Permanent(ctx.Err())
		}
		return nil, "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, "", retry.Permanent(ErrNotModified)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, "", &StatusError{Code: resp.StatusCode}
	}

	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		return nil, "", fmt.Errorf("%w: unexpected content type %q", ErrMalformed, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "success flag unset"
		}
		return nil, "", fmt.Errorf("%w: upstream reported failure: %s", ErrMalformed, msg)
	}
	if env.Data == nil {
		return nil, "", fmt.Errorf("%w: missing data block", ErrMalformed)
	}
	if err := c.validate.Struct(env.Data); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	board := model.Board{Agents: env.Data.Agents, Stats: env.Data.Stats}
	if env.Meta != nil {
		board.UpdatedAt = env.Meta.UpdatedAt
	}
	if board.UpdatedAt.IsZero() {
		board.UpdatedAt = time.Now()
	}
	return &board, resp.Header.Get("ETag"), nil
}
