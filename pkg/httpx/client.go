// Package httpx provides a small HTTP client with a fixed retry budget.
// A per-attempt deadline is treated the same as a transport failure: the
// attempt is retried until the budget is exhausted, then the last error is
// returned to the caller.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultAttempts is the total number of tries per request.
	DefaultAttempts = 3
	// DefaultTimeout bounds each individual attempt.
	DefaultTimeout = 8 * time.Second
)

// Client wraps http.Client with bounded retries on transport errors and 5xx.
type Client struct {
	http     *http.Client
	attempts int
	timeout  time.Duration
}

// New creates a retrying client. attempts <= 0 or timeout <= 0 fall back to
// the defaults.
func New(attempts int, timeout time.Duration) *Client {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{},
		attempts: attempts,
		timeout:  timeout,
	}
}

// Do executes the request, retrying transport errors and 5xx responses.
// Non-5xx responses (including 4xx) are returned immediately; callers decide
// whether a status is an error. The request body must be nil or replayable
// via req.GetBody.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		attempt := req
		if i > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			attempt = req.Clone(req.Context())
			attempt.Body = body
		}

		ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
		resp, err := c.http.Do(attempt.WithContext(ctx))
		if err != nil {
			cancel()
			lastErr = err
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			continue
		}
		if resp.StatusCode >= 500 && i < c.attempts-1 {
			drain(resp)
			cancel()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		// Hand the cancel to the body so the caller's read is still bounded.
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.attempts, lastErr)
}

// Get issues a GET with optional headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
