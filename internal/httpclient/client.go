// Package httpclient is the shared HTTP primitive beneath every backend
// adapter. It owns timeout wiring, context cancellation, optional
// client-side pacing, and SSE stream framing. It performs no retries: every
// network, timeout, and non-2xx condition surfaces exactly once as an error
// value.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient is the minimal request-execution surface. Satisfied by
// *http.Client and by *Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client bundles an http.Client with an optional rate limiter. A zero
// requests-per-second disables pacing.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client with the provider's configured timeout. When
// rps > 0 outgoing requests are paced with a token bucket (burst 1).
func NewClient(timeout time.Duration, rps float64) *Client {
	c := &Client{http: &http.Client{Timeout: timeout}}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// Do executes the request, waiting on the limiter first when one is set.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.http.Do(req)
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Send marshals body (when non-nil), executes the request, and decodes a
// 2xx response into out (when non-nil). Non-2xx statuses return an
// *UpstreamError carrying the raw body.
func Send(ctx context.Context, client HTTPClient, method, url string, headers map[string]string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
			RetryAfter: retryAfter(resp.Header),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
