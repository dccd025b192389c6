package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, "https://api.curlydots.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "CURLYDOTS_API_TOKEN", cfg.Auth.TokenEnvKey)
	assert.Equal(t, 2*time.Second, cfg.Auth.PollInterval)
	assert.False(t, cfg.Auth.DisableKeyring)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			BaseURL: "https://staging.curlydots.com",
			Timeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			Dir:          t.TempDir(),
			PollInterval: 500 * time.Millisecond,
		},
	}
	require.NoError(t, cfg.ApplyDefaults())

	assert.Equal(t, "https://staging.curlydots.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Auth.PollInterval)
}

func TestApplyDefaultsConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	cfg := &Config{}
	require.NoError(t, cfg.ApplyDefaults())
	assert.Equal(t, dir, cfg.Auth.Dir)

	// An explicit dir beats the environment.
	explicit := filepath.Join(dir, "elsewhere")
	cfg = &Config{Auth: AuthConfig{Dir: explicit}}
	require.NoError(t, cfg.ApplyDefaults())
	assert.Equal(t, explicit, cfg.Auth.Dir)
}

func TestApplyDefaultsNoKeyringEnv(t *testing.T) {
	tests := []struct {
		value    string
		disabled bool
	}{
		{"1", true},
		{"true", true},
		{"yes", true},
		{"0", false},
		{"false", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv(EnvConfigDir, t.TempDir())
			t.Setenv(EnvNoKeyring, tt.value)

			cfg := &Config{}
			require.NoError(t, cfg.ApplyDefaults())
			assert.Equal(t, tt.disabled, cfg.Auth.DisableKeyring)
		})
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "invalid base url",
			mutate: func(c *Config) {
				c.API.BaseURL = "not a url"
			},
		},
		{
			name: "unknown log format",
			mutate: func(c *Config) {
				c.LogFormat = "yaml"
			},
		},
		{
			name: "negative poll interval",
			mutate: func(c *Config) {
				c.Auth.PollInterval = -time.Second
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, t.TempDir())

			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAuthConfigNewStore(t *testing.T) {
	cfg := AuthConfig{
		Dir:            t.TempDir(),
		DisableKeyring: true,
		TokenEnvKey:    "CURLYDOTS_API_TOKEN",
	}

	store, err := cfg.NewStore()
	require.NoError(t, err)
	require.NotNil(t, store)
}
