package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// KeyringStore provides OS-native secure credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements TokenStore
var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore using the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the credential from the system keyring.
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring read: %w", err)
	}
	if token == "" {
		return "", ErrNotFound
	}

	return token, nil
}

// Write persists the credential to the system keyring, overwriting any
// existing value.
func (k *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return keyring.Set(k.service, k.user, token)
}

// Clear deletes the credential from the system keyring. "Not found" is
// not an error.
func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Delete(k.service, k.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// ProbeKeyring reports whether a usable keyring backend is reachable, by
// round-tripping a throwaway value. Headless hosts and sandboxes commonly
// have no Secret Service; the probe keeps that case quiet so the encrypted
// file fallback takes over without call sites branching on platform.
func ProbeKeyring(service string) bool {
	const probeUser = "curlydots-keyring-probe"

	if err := keyring.Set(service, probeUser, "ok"); err != nil {
		slog.Debug("keyring unavailable", "error", err)
		return false
	}
	if _, err := keyring.Get(service, probeUser); err != nil {
		slog.Debug("keyring read-back failed", "error", err)
		return false
	}
	_ = keyring.Delete(service, probeUser)
	return true
}
