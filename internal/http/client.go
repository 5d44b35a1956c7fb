// Package http provides the outbound HTTP client shared by the user service
// and assignment sink integrations: token-bucket pacing plus bounded retries
// on transient failures.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/taskdesk/eligibility-service/internal/http/ratelimit"
)

// Client is an HTTP client with rate limiting and retry logic.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ratelimit.Config
}

// NewClient creates a client with the given outbound call policy.
func NewClient(config ratelimit.Config) *Client {
	if config.RequestsPerSecond <= 0 {
		config = ratelimit.DefaultConfig()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		config:  config,
	}
}

// NewClientDefault creates a client with the default policy.
func NewClientDefault() *Client {
	return NewClient(ratelimit.DefaultConfig())
}

// GetJSON performs a GET request and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", url, err)
	}
	return nil
}

// PostJSON performs a POST request with a JSON body. The response body is
// drained and discarded; only the status outcome matters to callers.
func (c *Client) PostJSON(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request body for %s: %w", url, err)
	}

	resp, err := c.Do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Do performs an HTTP request with rate limiting and retry logic. A non-2xx
// final status is returned as a *ratelimit.RequestError, never as a response.
func (c *Client) Do(ctx context.Context, method, url string, payload []byte) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("error building request: %w", err)
		}
		req.Header.Set("User-Agent", "TaskDesk-EligibilityService/1.0")
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.config.MaxRetries {
				sleep(ctx, ratelimit.Backoff(attempt, c.config))
				continue
			}
			break
		}

		lastStatus = resp.StatusCode

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		resp.Body.Close()

		if !ratelimit.IsRetryableStatus(resp.StatusCode) || attempt == c.config.MaxRetries {
			break
		}

		var backoff time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			backoff = ratelimit.RateLimitBackoff(attempt, c.config, resp.Header.Get("Retry-After"))
		} else {
			backoff = ratelimit.Backoff(attempt, c.config)
		}
		sleep(ctx, backoff)
	}

	return nil, &ratelimit.RequestError{
		URL:        url,
		Attempts:   c.config.MaxRetries + 1,
		LastStatus: lastStatus,
		LastError:  lastErr,
	}
}

// Config returns the current outbound call policy.
func (c *Client) Config() ratelimit.Config {
	return c.config
}

// sleep blocks for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
