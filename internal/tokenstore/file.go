package tokenstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
)

const (
	nonceSize = 12 // 96-bit GCM nonce
	tagSize   = 16 // 128-bit GCM tag
)

// envelope is the on-disk form of the encrypted credential. All three
// values are base64 so the file stays text-safe.
type envelope struct {
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Ciphertext string `json:"ciphertext"`
}

// EncryptedFileStore stores the credential in an AES-256-GCM encrypted file.
// The key is derived, not stored: a SHA-256 of "{username}-{hostname}". This
// keeps the token out of casual disk inspection and backups without a key
// management step, and intentionally does not defend against code running
// as the same OS user.
type EncryptedFileStore struct {
	filePath string
	aead     cipher.AEAD
}

// Compile-time check to ensure EncryptedFileStore implements TokenStore
var _ TokenStore = (*EncryptedFileStore)(nil)

// NewEncryptedFileStore creates a store at the given path, creating parent
// directories with 0700 permissions if they don't exist.
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	key := deriveKey()
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}

	return &EncryptedFileStore{
		filePath: filePath,
		aead:     aead,
	}, nil
}

// deriveKey builds the machine/user-bound encryption key. Failures to
// resolve the username or hostname degrade to fixed fallbacks rather than
// erroring; the key just becomes less specific.
func deriveKey() [sha256.Size]byte {
	username := "default"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	} else if v := os.Getenv("USER"); v != "" {
		username = v
	} else if v := os.Getenv("USERNAME"); v != "" {
		username = v
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}

	return sha256.Sum256([]byte(username + "-" + hostname))
}

// Read decrypts and returns the stored credential. Any failure mode of the
// file itself (missing, malformed JSON, bad encoding, failed authentication)
// is reported as ErrNotFound so the caller falls through to a fresh login.
func (f *EncryptedFileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Debug("credential file is not valid JSON, treating as absent")
		return "", ErrNotFound
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != nonceSize {
		return "", ErrNotFound
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil || len(tag) != tagSize {
		return "", ErrNotFound
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", ErrNotFound
	}

	plaintext, err := f.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		slog.Debug("credential file failed authentication, treating as absent")
		return "", ErrNotFound
	}
	if len(plaintext) == 0 {
		return "", ErrNotFound
	}

	return string(plaintext), nil
}

// Write encrypts the credential with a fresh random nonce and saves it
// atomically via temp file + rename. File permissions end up 0600.
func (f *EncryptedFileStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	sealed := f.aead.Seal(nil, iv, []byte(token), nil)
	split := len(sealed) - tagSize

	env := envelope{
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}

	// Temp file in the same directory so the rename stays atomic
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempName, 0600); err != nil {
		return err
	}

	if err := os.Rename(tempName, f.filePath); err != nil {
		return err
	}

	return nil
}

// Clear deletes the credential file if present.
func (f *EncryptedFileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(f.filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
