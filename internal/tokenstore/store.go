package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
)

// Source identifies which backend supplied a credential on Load.
type Source string

const (
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceFile    Source = "file"
)

// credentialFile is the encrypted record inside the config directory.
const credentialFile = "credentials.json"

// Options configures the composite Store.
type Options struct {
	// Service is the keyring service identifier.
	Service string
	// EnvKey names the environment variable override. Empty disables it.
	EnvKey string
	// Dir is the configuration root holding the encrypted file.
	Dir string
	// DisableKeyring forces file-only storage. Useful in sandboxes where
	// keyring access would hang or fail noisily.
	DisableKeyring bool
}

// Store composes the env override, the OS keyring, and the encrypted file
// fallback behind one TokenStore contract. Backend selection happens here,
// once, at construction; call sites never branch on platform capabilities.
type Store struct {
	env     *EnvStore
	keyring TokenStore // nil when unavailable or disabled
	file    *EncryptedFileStore
}

// Compile-time check to ensure Store implements TokenStore
var _ TokenStore = (*Store)(nil)

// New creates a Store. The keyring backend is probed once; when the probe
// fails the store silently operates file-only, which is the expected state
// on headless CI machines.
func New(opts Options) (*Store, error) {
	if opts.Service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("config directory cannot be empty")
	}

	s := &Store{}

	if opts.EnvKey != "" {
		env, err := NewEnvStore(opts.EnvKey)
		if err != nil {
			return nil, err
		}
		s.env = env
	}

	if !opts.DisableKeyring && ProbeKeyring(opts.Service) {
		keyringUser := localUsername()
		kr, err := NewKeyringStore(opts.Service, keyringUser)
		if err != nil {
			return nil, err
		}
		s.keyring = kr
	}

	file, err := NewEncryptedFileStore(filepath.Join(opts.Dir, credentialFile))
	if err != nil {
		return nil, fmt.Errorf("creating encrypted file store: %w", err)
	}
	s.file = file

	return s, nil
}

// localUsername resolves the keyring account name for this OS user.
func localUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	if v := os.Getenv("USERNAME"); v != "" {
		return v
	}
	return "default"
}

// Load returns the current credential and the backend that supplied it.
// Precedence: env override, keyring, encrypted file. Backend errors on the
// read path (beyond "absent") degrade to the next backend; only the final
// miss is reported, as ErrNotFound.
func (s *Store) Load(ctx context.Context) (string, Source, error) {
	if s.env != nil {
		token, err := s.env.Read(ctx)
		if err == nil {
			return token, SourceEnv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", "", err
		}
	}

	if s.keyring != nil {
		token, err := s.keyring.Read(ctx)
		if err == nil {
			return token, SourceKeyring, nil
		}
		if !errors.Is(err, ErrNotFound) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", "", ctxErr
			}
			slog.DebugContext(ctx, "keyring read failed, trying file fallback", "error", err)
		}
	}

	token, err := s.file.Read(ctx)
	if err != nil {
		return "", "", err
	}
	return token, SourceFile, nil
}

// Read implements TokenStore.
func (s *Store) Read(ctx context.Context) (string, error) {
	token, _, err := s.Load(ctx)
	return token, err
}

// Write persists the credential: keyring first, encrypted file when the
// keyring is unavailable or the write fails. Exactly one backend ends up
// holding the new value; a stale entry in the other is removed on Clear.
func (s *Store) Write(ctx context.Context, token string) error {
	if s.keyring != nil {
		err := s.keyring.Write(ctx, token)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		slog.DebugContext(ctx, "keyring write failed, falling back to encrypted file", "error", err)
	}

	return s.file.Write(ctx, token)
}

// Clear deletes the credential from every writable backend. Idempotent;
// "already absent" never errors.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error

	if s.keyring != nil {
		if err := s.keyring.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.file.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
