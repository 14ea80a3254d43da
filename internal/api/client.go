// Package api is the HTTP client for the Synoptic clinical backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"synoptic/internal/logging"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	newID   func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outbound requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestIDs overrides the request ID generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, req, res interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: %s %s: %w", method, path, err)
		}
	}

	var body io.Reader
	if req != nil {
		b := &bytes.Buffer{}
		if err := json.NewEncoder(b).Encode(req); err != nil {
			return fmt.Errorf("api: encode %s request: %w", path, err)
		}
		body = b
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	reqID := c.newID()
	httpReq.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	httpRes, err := c.http.Do(httpReq)
	if err != nil {
		logging.Get(logging.CategoryAPI).Warn("%s %s req=%s failed: %v", method, path, reqID, err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer httpRes.Body.Close()

	logging.APIDebug("%s %s req=%s status=%d in %s", method, path, reqID, httpRes.StatusCode, time.Since(start))

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return decodeError(httpRes, reqID)
	}
	if res == nil {
		return nil
	}
	if err := json.NewDecoder(httpRes.Body).Decode(res); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(httpRes *http.Response, reqID string) error {
	e := &Error{Status: httpRes.StatusCode, RequestID: reqID}
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(httpRes.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		e.Message = payload.Error
	} else {
		e.Message = http.StatusText(httpRes.StatusCode)
	}
	return e
}

// Error is a non-2xx response from the backend.
type Error struct {
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status of an *Error in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
