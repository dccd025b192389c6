package pairing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
)

// Flow composes one full interactive login: create a session, show the
// user the code and URL, open the browser when running on a terminal, and
// poll until the session resolves.
//
// Cancellation is the caller's concern: wire an interrupt signal into ctx
// (signal.NotifyContext) around the Authenticate call and release it right
// after, so no handler outlives the attempt.
type Flow struct {
	initiator *Initiator
	poller    *Poller

	out         io.Writer
	openBrowser func(url string) error
	interactive func() bool
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithOutput redirects user-facing flow messages (defaults to stderr).
func WithOutput(w io.Writer) FlowOption {
	return func(f *Flow) {
		f.out = w
	}
}

// WithBrowserOpener replaces the browser launcher, for tests.
func WithBrowserOpener(open func(url string) error) FlowOption {
	return func(f *Flow) {
		f.openBrowser = open
	}
}

// WithInteractive overrides terminal detection, for tests.
func WithInteractive(interactive func() bool) FlowOption {
	return func(f *Flow) {
		f.interactive = interactive
	}
}

// WithPoller replaces the default poller.
func WithPoller(poller *Poller) FlowOption {
	return func(f *Flow) {
		f.poller = poller
	}
}

// NewFlow creates a Flow on top of the given transport. version is the CLI
// version reported when creating sessions.
func NewFlow(client *apiclient.Client, version string, opts ...FlowOption) (*Flow, error) {
	initiator, err := NewInitiator(client, version)
	if err != nil {
		return nil, err
	}
	poller, err := NewPoller(client)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		initiator:   initiator,
		poller:      poller,
		out:         os.Stderr,
		openBrowser: OpenBrowser,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Authenticate runs the whole pairing flow and returns the approved
// credential payload. Implements tokensource.Authenticator.
func (f *Flow) Authenticate(ctx context.Context) (string, error) {
	device := CollectDeviceInfo()

	session, err := f.initiator.CreateSession(ctx, device)
	if err != nil {
		return "", err
	}

	// The URL and code are always printed: the browser launch is
	// best-effort and the user must be able to proceed manually.
	fmt.Fprintf(f.out, "\nTo sign in, open:\n\n    %s\n\nand confirm that the page shows code %s.\n\n",
		session.BrowserURL, session.PairingCode)

	if f.interactive() {
		if err := f.openBrowser(session.BrowserURL); err != nil {
			slog.DebugContext(ctx, "could not open browser", "error", err)
		}
	}

	fmt.Fprintln(f.out, "Waiting for confirmation... (Ctrl+C to cancel)")

	return f.poller.Wait(ctx, session)
}
