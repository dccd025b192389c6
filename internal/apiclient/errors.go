package apiclient

import (
	"fmt"
	"net/http"
)

// Category classifies a failed backend request so callers can decide
// whether retrying makes sense.
type Category string

const (
	// CategoryTransient covers rate limiting and server-side errors that
	// are safe to retry.
	CategoryTransient Category = "transient"
	// CategoryAuth covers 401/403-class rejections.
	CategoryAuth Category = "authentication"
	// CategoryPermanent covers other 4xx-class rejections that retrying
	// will not fix.
	CategoryPermanent Category = "permanent"
	// CategorySystem covers local faults: DNS, connection refused, TLS.
	CategorySystem Category = "system"
)

// RequestError is the failure type surfaced by Client for any request
// that did not produce a usable response.
type RequestError struct {
	Category   Category
	StatusCode int // 0 when the request never reached the backend
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Category, e.StatusCode, e.Message)
}

// Retryable reports whether the client may retry the request internally.
func (e *RequestError) Retryable() bool {
	return e.Category == CategoryTransient || e.Category == CategorySystem
}

// classify maps an HTTP status code to a failure category.
func classify(statusCode int) Category {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return CategoryTransient
	case statusCode >= 500:
		return CategoryTransient
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return CategoryAuth
	default:
		return CategoryPermanent
	}
}
