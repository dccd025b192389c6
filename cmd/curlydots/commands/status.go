package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Sopamo/curlydots-cli/internal/tokensource"
	"github.com/Sopamo/curlydots-cli/internal/tokenstore"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current sign-in state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			raw, source, err := a.Store.Load(ctx)
			if errors.Is(err, tokenstore.ErrNotFound) {
				fmt.Println("Not signed in. Run `curlydots login` to sign in.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading credential: %w", err)
			}

			token := tokensource.Normalize(raw)
			now := time.Now()

			fmt.Printf("Signed in (credential from %s storage).\n", source)
			fmt.Printf("  Token:     %s\n", mask(token.AccessToken))
			fmt.Printf("  Expires:   %s\n", token.ExpiresAt.Local().Format(time.RFC1123))
			if token.Valid(now) {
				fmt.Printf("  Remaining: %s\n", token.TimeRemaining(now).Round(time.Minute))
			} else {
				fmt.Println("  Remaining: expired, the next command will sign in again")
			}
			if len(token.Scope) > 0 {
				fmt.Printf("  Scopes:    %v\n", token.Scope)
			}
			return nil
		},
	}
}

// mask shortens a secret for display, keeping just enough to recognize it.
func mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "…" + secret[len(secret)-4:]
}
