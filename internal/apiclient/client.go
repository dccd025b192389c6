// Package apiclient provides the authenticated HTTP transport for the
// curlydots backend.
//
// All failures are reported as *RequestError with a category (transient,
// authentication, permanent, system). The client retries transient and
// system failures internally with exponential backoff and jitter; anything
// that survives the retry budget is surfaced to the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default retry and timeout behavior. Tuned for an interactive CLI: short
// enough that a dead backend fails within seconds, long enough to ride out
// a single blip.
const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 2
	defaultBaseDelay    = 500 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultJitterFactor = 0.2
)

// Client is a JSON-over-HTTP client for the curlydots API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	jitterFactor float64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets a custom base transport, e.g. for tests or proxies.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// WithMaxRetries bounds internal retries of transient failures.
// Zero disables retrying entirely.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		userAgent:    "curlydots-cli",
		maxRetries:   defaultMaxRetries,
		baseDelay:    defaultBaseDelay,
		maxDelay:     defaultMaxDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Response is the raw outcome of a successful (including 304) API call.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Do executes the request, retrying transient failures up to the retry
// budget. Context cancellation aborts immediately and is returned as-is,
// never wrapped in a RequestError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			slog.DebugContext(ctx, "retrying request",
				"method", req.Method, "path", req.Path,
				"attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || !reqErr.Retryable() {
			return nil, err
		}
	}

	return nil, lastErr
}

// doRequest performs a single attempt.
func (c *Client) doRequest(ctx context.Context, req *Request) (*Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RequestError{Category: CategorySystem, Message: err.Error()}
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RequestError{Category: CategorySystem, Message: fmt.Sprintf("reading response body: %v", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Header:     httpResp.Header,
	}

	// 304 is a valid outcome for conditional requests, not an error.
	if httpResp.StatusCode >= 400 {
		return nil, &RequestError{
			Category:   classify(httpResp.StatusCode),
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(body, httpResp.StatusCode),
		}
	}

	return resp, nil
}

// errorMessage extracts the backend's error description when the body
// carries one, falling back to the HTTP status text.
func errorMessage(body []byte, statusCode int) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(statusCode)
}

// backoff computes the delay before the given attempt: exponential from
// baseDelay, capped at maxDelay, with jitter to avoid lockstep retries.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	delay += delay * c.jitterFactor * (rand.Float64()*2 - 1)
	if delay < float64(c.baseDelay) {
		delay = float64(c.baseDelay)
	}
	return time.Duration(delay)
}
