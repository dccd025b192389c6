// Package commands defines the curlydots CLI surface.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Sopamo/curlydots-cli/internal/app"
	"github.com/Sopamo/curlydots-cli/internal/observability"
	"github.com/Sopamo/curlydots-cli/internal/version"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:    "curlydots",
		Usage:   "Manage translation workflows from the command line",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelWarn.String(),
			},
			&cli.StringFlag{
				Name:  "api--base-url",
				Usage: "backend API base URL",
				Value: app.DefaultConfigAPIBaseURL,
			},
			&cli.BoolFlag{
				Name:  "no-keyring",
				Usage: "disable OS keychain integration, store the credential in an encrypted file",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			statusCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setup loads configuration, installs logging, and assembles the app.
// Shared by every subcommand action.
func setup(cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// The no-keyring flag maps onto auth config outside of koanf because
	// its name intentionally doesn't mirror the config structure.
	if cmd.Bool("no-keyring") {
		cfg.Auth.DisableKeyring = true
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, nil
}
