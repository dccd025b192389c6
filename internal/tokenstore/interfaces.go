package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the backend holds no credential.
// A corrupted or undecryptable record is also reported as ErrNotFound so
// callers fall through to re-authentication instead of crashing.
var ErrNotFound = errors.New("no stored credential")

// TokenStore reads and writes one opaque credential string.
type TokenStore interface {
	// Read returns the stored credential. Returns ErrNotFound if absent.
	Read(ctx context.Context) (string, error)

	// Write persists the credential, overwriting any existing value.
	// Returns an error if the backend is read-only.
	Write(ctx context.Context, token string) error

	// Clear deletes the credential. Idempotent; clearing an already-empty
	// backend is not an error.
	Clear(ctx context.Context) error
}
