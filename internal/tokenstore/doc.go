// Package tokenstore persists the single curlydots credential for this
// machine/user pair.
//
// Three backends with different tradeoffs:
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Secret Service). Preferred when available.
//   - EncryptedFile: AES-256-GCM encrypted file fallback for headless and
//     sandboxed environments where no keyring is reachable.
//   - Env: read-only environment variable override for CI and
//     externally-issued API keys.
//
// Store composes them: writes go keyring-first with file fallback, reads
// follow the precedence env > keyring > file. The file encryption key is
// derived from the local OS username and hostname, so the file is portable
// only within the same user/host pair. That is an intentional boundary: the
// store protects the token from casual disk inspection and backups, not
// from code already running as the same OS user.
package tokenstore
