package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
	"github.com/Sopamo/curlydots-cli/internal/pairing"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to curlydots via your browser",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			// The interrupt observer lives exactly as long as the login
			// attempt; unrelated commands never see it.
			loginCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			token, err := a.Auth.Login(loginCtx)
			stop()

			if err != nil {
				return loginError(err)
			}

			fmt.Printf("Signed in. Your session is valid until %s.\n",
				token.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

// loginError translates flow outcomes into user-facing messages. None of
// the branches may include credential material.
func loginError(err error) error {
	var denied *pairing.DeniedError
	var reqErr *apiclient.RequestError

	switch {
	case errors.Is(err, pairing.ErrCanceled):
		// User-initiated, not an error to alarm about.
		fmt.Fprintln(os.Stderr, "Sign-in canceled.")
		return nil
	case errors.As(err, &denied):
		if denied.Reason != "" {
			return fmt.Errorf("sign-in was denied: %s", denied.Reason)
		}
		return errors.New("sign-in was denied")
	case errors.Is(err, pairing.ErrExpired), errors.Is(err, pairing.ErrTimedOut):
		return errors.New("the sign-in request expired before it was confirmed, please try again")
	case errors.As(err, &reqErr):
		return fmt.Errorf("could not reach the curlydots backend: %s", reqErr.Message)
	default:
		return fmt.Errorf("sign-in failed: %w", err)
	}
}
