// Package upstream talks to the terminal's public container tracking API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pnct-tools/container-query/internal/clock"
	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client. Its Timeout replaces
// the configured one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock sets the clock used for the cache-busting query parameter.
func WithClock(cl clock.Clock) Option {
	return func(c *Client) {
		c.clock = cl
	}
}

// Client fetches one container record per call. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	cfg    *config.UpstreamConfig
	http   *http.Client
	clock  clock.Clock
	logger zerolog.Logger
}

func NewClient(cfg *config.UpstreamConfig, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		clock:  clock.NewSystem(),
		logger: logger.With().Str("component", "upstream").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetContainer issues a single GET for containerID. It returns a NotFoundError
// for 404s and empty answers, an UpstreamError for any other non-2xx status or
// an unreadable body, and a NetworkError when no status was obtained.
func (c *Client) GetContainer(ctx context.Context, containerID string) (domain.ContainerRecord, error) {
	endpoint, err := c.buildURL(containerID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build terminal API request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	c.logger.Debug().Str("container_id", containerID).Str("url", endpoint).Msg("Calling terminal API")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	c.logger.Debug().
		Str("container_id", containerID).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Terminal API responded")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(containerID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, domain.NewUpstreamError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	record, err := decodeRecord(body)
	if err != nil {
		return nil, domain.NewUpstreamError(resp.StatusCode, fmt.Sprintf("invalid JSON body: %v", err))
	}
	if len(record) == 0 {
		return nil, domain.NewNotFoundError(containerID)
	}
	return record, nil
}

func (c *Client) buildURL(containerID string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse terminal API base url: %w", err)
	}
	q := u.Query()
	q.Set("siteId", c.cfg.SiteID)
	q.Set("key", containerID)
	q.Set("_", strconv.FormatInt(c.clock.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeRecord accepts an object or an array whose first element is an
// object. Anything else (null, empty array, scalars) decodes to nil.
func decodeRecord(body []byte) (domain.ContainerRecord, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	switch v := payload.(type) {
	case map[string]any:
		return domain.ContainerRecord(v), nil
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		if first, ok := v[0].(map[string]any); ok {
			return domain.ContainerRecord(first), nil
		}
	}
	return nil, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("terminal API call canceled: %w", context.Canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewNetworkError(err, true)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewNetworkError(err, true)
	}
	return domain.NewNetworkError(err, false)
}
