// Package app wires configuration into the credential store, the pairing
// flow, and the token lifecycle manager used by the commands.
package app

import (
	"fmt"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
	"github.com/Sopamo/curlydots-cli/internal/pairing"
	"github.com/Sopamo/curlydots-cli/internal/tokensource"
	"github.com/Sopamo/curlydots-cli/internal/tokenstore"
	"github.com/Sopamo/curlydots-cli/internal/version"
)

// App holds the assembled components for one command invocation.
type App struct {
	cfg *Config

	Client *apiclient.Client
	Store  *tokenstore.Store
	Auth   *tokensource.Manager
}

// New creates an App instance. Keyring probing happens here; no network
// I/O is performed until a command acts.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithUserAgent("curlydots-cli/"+version.Version),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	store, err := cfg.Auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	poller, err := pairing.NewPoller(client, pairing.WithInterval(cfg.Auth.PollInterval))
	if err != nil {
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}
	flow, err := pairing.NewFlow(client, version.Version, pairing.WithPoller(poller))
	if err != nil {
		return nil, fmt.Errorf("failed to create pairing flow: %w", err)
	}

	manager, err := tokensource.NewManager(store, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	return &App{
		cfg:    cfg,
		Client: client,
		Store:  store,
		Auth:   manager,
	}, nil
}
