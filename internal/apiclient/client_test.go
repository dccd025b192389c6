package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New(url, opts...)
	require.NoError(t, err)
	return c
}

func TestDoSetsStandardHeaders(t *testing.T) {
	var gotRequestID, gotUserAgent, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get("X-Request-ID")
		gotUserAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithUserAgent("curlydots-cli/test"))
	_, err := client.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/v1/ping",
		Body:   map[string]string{"hello": "world"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "curlydots-cli/test", gotUserAgent)
	assert.Equal(t, "application/json", gotContentType)
}

func TestDoClassifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		category   Category
	}{
		{"unauthorized", http.StatusUnauthorized, CategoryAuth},
		{"forbidden", http.StatusForbidden, CategoryAuth},
		{"not found", http.StatusNotFound, CategoryPermanent},
		{"conflict", http.StatusConflict, CategoryPermanent},
		{"rate limited", http.StatusTooManyRequests, CategoryTransient},
		{"server error", http.StatusInternalServerError, CategoryTransient},
		{"bad gateway", http.StatusBadGateway, CategoryTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, WithMaxRetries(0))
			_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.category, reqErr.Category)
			assert.Equal(t, tt.statusCode, reqErr.StatusCode)
			assert.Equal(t, "nope", reqErr.Message)
		})
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(2))
	client.baseDelay = 1
	client.maxDelay = 2

	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoDoesNotRetryPermanentFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(3))

	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, CategoryPermanent, reqErr.Category)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDoNotModifiedIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestDoConnectionFailureIsSystem(t *testing.T) {
	// Closed server: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(0))
	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, CategorySystem, reqErr.Category)
	assert.Zero(t, reqErr.StatusCode)
}

func TestDoCanceledContextReturnsContextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL)
	_, err := client.Do(ctx, &Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr), "cancellation must not be wrapped in a RequestError")
}
