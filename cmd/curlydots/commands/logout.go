package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Remove the stored credential from this machine",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			// Idempotent: logging out while logged out is fine.
			if err := a.Auth.Logout(ctx); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}

			fmt.Println("Signed out.")
			return nil
		},
	}
}
