package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sopamo/curlydots-cli/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Default configuration values
const (
	DefaultConfigLogFormat    = LogFormatText
	DefaultConfigAPIBaseURL   = "https://api.curlydots.com"
	DefaultConfigAPITimeout   = 30 * time.Second
	DefaultConfigPollInterval = 2 * time.Second
	DefaultConfigTokenEnvKey  = "CURLYDOTS_API_TOKEN"
)

// keyringService identifies this CLI's entries in the OS keyring.
const keyringService = "curlydots-cli"

// Environment shortcuts honored regardless of the koanf config sources.
// These are the documented knobs for CI and sandboxed environments.
const (
	// EnvConfigDir relocates the configuration root directory.
	EnvConfigDir = "CURLYDOTS_CONFIG_DIR"
	// EnvNoKeyring disables OS keychain integration, forcing file-only
	// credential storage.
	EnvNoKeyring = "CURLYDOTS_NO_KEYRING"
)

// APIConfig holds backend transport configuration.
type APIConfig struct {
	BaseURL string        `json:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout"`
}

// AuthConfig describes how the credential store and the pairing flow are
// constructed.
type AuthConfig struct {
	// Dir is the configuration root holding the encrypted credential file.
	Dir string `json:"dir,omitempty"`

	// DisableKeyring forces file-only storage.
	DisableKeyring bool `json:"disable_keyring"`

	// TokenEnvKey names the environment variable that can supply the
	// access token directly, bypassing the store.
	TokenEnvKey string `json:"token_env_key,omitempty"`

	// PollInterval between pairing poll requests.
	PollInterval time.Duration `json:"poll_interval"`
}

// NewStore creates the credential store described by this configuration.
func (a *AuthConfig) NewStore() (*tokenstore.Store, error) {
	return tokenstore.New(tokenstore.Options{
		Service:        keyringService,
		EnvKey:         a.TokenEnvKey,
		Dir:            a.Dir,
		DisableKeyring: a.DisableKeyring,
	})
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level `json:"log_level"`
	LogFormat LogFormat  `json:"log_format" validate:"oneof=text json"`
	API       APIConfig  `json:"api"`
	Auth      AuthConfig `json:"auth"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults and folds
// in the documented environment shortcuts.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}
	if c.Auth.TokenEnvKey == "" {
		c.Auth.TokenEnvKey = DefaultConfigTokenEnvKey
	}
	if c.Auth.PollInterval == 0 {
		c.Auth.PollInterval = DefaultConfigPollInterval
	}

	if v := os.Getenv(EnvNoKeyring); v != "" && v != "0" && v != "false" {
		c.Auth.DisableKeyring = true
	}

	if c.Auth.Dir == "" {
		if v := os.Getenv(EnvConfigDir); v != "" {
			c.Auth.Dir = v
		} else {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.dir required (auto-detect failed: %w)", err)
			}
			c.Auth.Dir = filepath.Join(configDir, "curlydots")
		}
	}

	return nil
}

// Validate validates the configuration using struct tags plus hand checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Auth.Dir == "" {
		return fmt.Errorf("auth.dir is required")
	}
	if c.Auth.PollInterval <= 0 {
		return fmt.Errorf("auth.poll_interval must be positive")
	}

	return nil
}
