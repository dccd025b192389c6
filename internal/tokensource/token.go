package tokensource

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// ExpiryBuffer is the lead time before actual expiry at which a token
	// is proactively treated as expired, avoiding races with in-flight
	// requests near the deadline.
	ExpiryBuffer = 5 * time.Minute

	// DefaultTTL is the conservative validity assumed for credentials that
	// carry no expiry of their own (manually-pasted tokens).
	DefaultTTL = 24 * time.Hour
)

// AuthToken is the normalized credential record.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        []string  `json:"scope,omitempty"`
}

// Valid reports whether the token is usable at the given instant. A token
// inside the expiry buffer counts as expired.
func (t AuthToken) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-ExpiryBuffer))
}

// TimeRemaining returns the lifetime left at the given instant, which may
// be negative.
func (t AuthToken) TimeRemaining(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// Encode serializes the token for storage.
func (t AuthToken) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Normalize converts a raw stored string into an AuthToken. Structured JSON
// records are taken as-is; anything else is treated as a bare opaque token
// with the default TTL, so the tool stays usable with a manually-pasted
// token. Never fails.
func Normalize(raw string) AuthToken {
	return normalizeAt(raw, time.Now())
}

func normalizeAt(raw string, now time.Time) AuthToken {
	raw = strings.TrimSpace(raw)

	var token AuthToken
	if err := json.Unmarshal([]byte(raw), &token); err == nil && token.AccessToken != "" {
		if token.ExpiresAt.IsZero() {
			token.ExpiresAt = now.Add(DefaultTTL)
		}
		return token
	}

	return AuthToken{
		AccessToken: raw,
		ExpiresAt:   now.Add(DefaultTTL),
	}
}
