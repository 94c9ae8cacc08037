// Package api is the ResearchHub REST client: the comment service boundary
// plus the unified document feed and vote endpoints the TUI browses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://backend.prod.researchhub.com/api"

	requestTimeout = 15 * time.Second
	maxConcurrent  = 8

	retryMaxElapsed  = 20 * time.Second
	retryInitial     = 300 * time.Millisecond
	retryMaxInterval = 3 * time.Second
	retryMaxAttempts = 4
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.Code, e.URL, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is the ResearchHub API client.
type Client struct {
	http *http.Client
	base string
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates an API client. An empty base falls back to the
// production API; a nil logger becomes a nop.
func NewClient(base string, log *zap.Logger) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
		base: base,
		log:  log,
	}
}

// SetToken installs the session auth token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) authToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "margin/1.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.authToken(); tok != "" {
		req.Header.Set("Authorization", "Token "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Code: resp.StatusCode, URL: url, Body: string(raw)}
	}

	if dst == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// get fetches a URL with retries. Only idempotent reads go through here;
// 4xx responses stop immediately, transient failures back off.
func (c *Client) get(ctx context.Context, url string, dst any) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(retryMaxElapsed),
		backoff.WithInitialInterval(retryInitial),
		backoff.WithMaxInterval(retryMaxInterval),
	), retryMaxAttempts)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.do(ctx, http.MethodGet, url, nil, dst)
		if err == nil {
			return nil
		}
		if se, ok := err.(*StatusError); ok && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if attempt > 1 {
			c.log.Debug("retrying request", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// post sends a JSON body without retries; mutations are not idempotent.
func (c *Client) post(ctx context.Context, url string, payload, dst any) error {
	return c.send(ctx, http.MethodPost, url, payload, dst)
}

func (c *Client) patch(ctx context.Context, url string, payload, dst any) error {
	return c.send(ctx, http.MethodPatch, url, payload, dst)
}

func (c *Client) send(ctx context.Context, method, url string, payload, dst any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, method, url, body, dst)
}
