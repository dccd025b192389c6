package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a credential supplied via an
// environment variable. Intended for CI and for externally-issued API keys;
// it always wins over the persistent backends.
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// The variable does not have to be set; an unset variable reads as absent.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	return &EnvStore{envKey: envKey}, nil
}

// Read returns the credential from the environment variable.
// Returns ErrNotFound if the variable is unset or empty.
func (e *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := os.Getenv(e.envKey)
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Write is not supported for environment variables (they are read-only).
func (e *EnvStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("environment variable storage is read-only")
}

// Clear is a no-op; the variable belongs to the parent process.
func (e *EnvStore) Clear(ctx context.Context) error {
	return ctx.Err()
}
