// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is a small retrying HTTP client. Requests that come back 429 or 503
// are retried up to MaxRetries times, waiting as long as the upstream asks.
type Client struct {
	httpClient  *http.Client
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		MaxRetries:  maxRetries,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// Request is a replayable request description.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Do sends req, retrying throttled responses. The body is read and closed.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	for attempt := 0; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, err
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if !retryableStatus(resp.StatusCode) || attempt >= c.MaxRetries {
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body, Attempts: attempt + 1}, nil
		}

		wait := c.retryAfter(resp.Header, attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// retryAfter honours Retry-After (seconds or HTTP date), then
// X-RateLimit-Reset (seconds or unix time), then falls back to exponential
// backoff capped at MaxBackoff.
func (c *Client) retryAfter(h http.Header, attempt int) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return c.clamp(time.Duration(secs) * time.Second)
		}
		if t, err := http.ParseTime(v); err == nil {
			return c.clamp(time.Until(t))
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			if n < 1_000_000_000 {
				return c.clamp(time.Duration(n) * time.Second)
			}
			return c.clamp(time.Until(time.Unix(n, 0)))
		}
	}
	return c.clamp(c.BaseBackoff * time.Duration(1<<attempt))
}

func (c *Client) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}
