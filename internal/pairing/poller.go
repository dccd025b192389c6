package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
)

// PollInterval is the fixed wait between poll requests.
const PollInterval = 2 * time.Second

// pollTokenHeader carries the session-scoped poll credential.
const pollTokenHeader = "X-Pairing-Poll-Token"

// Terminal outcomes of a pairing attempt. Denials carry the backend's
// reason via DeniedError.
var (
	// ErrCanceled means the user interrupted the login locally. Distinct
	// from a backend denial or timeout; callers report it quietly.
	ErrCanceled = errors.New("login canceled")

	// ErrExpired means the backend reported the session's validity window
	// elapsed. A retry needs a brand-new session.
	ErrExpired = errors.New("pairing session expired")

	// ErrTimedOut means the local clock passed the session deadline before
	// the backend resolved it. Treated identically to ErrExpired for user
	// messaging.
	ErrTimedOut = errors.New("pairing session timed out")
)

// DeniedError means the user explicitly rejected the pairing in the
// browser.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Reason == "" {
		return "pairing denied"
	}
	return "pairing denied: " + e.Reason
}

// Pairing session statuses on the wire.
const (
	statusPending  = "pending"
	statusApproved = "approved"
	statusDenied   = "denied"
	statusExpired  = "expired"
)

type pollResponse struct {
	Status       string          `json:"status"`
	TokenPayload json.RawMessage `json:"token_payload,omitempty"`
	DeniedReason string          `json:"denied_reason,omitempty"`
}

// Poller drives the wait loop for one pairing session.
type Poller struct {
	client   *apiclient.Client
	interval time.Duration
	now      func() time.Time
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the poll interval, for tests.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = interval
	}
}

// WithPollerClock overrides the time source, for tests.
func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) {
		p.now = now
	}
}

// NewPoller creates a Poller.
func NewPoller(client *apiclient.Client, opts ...PollerOption) (*Poller, error) {
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}

	p := &Poller{
		client:   client,
		interval: PollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Wait polls until the session resolves and returns the approved credential
// payload. Each iteration checks, in order: cancellation, the local
// deadline, then issues exactly one poll request. Transport-level failures
// abort the whole attempt; only an explicit pending (or unchanged) response
// keeps the loop going.
func (p *Poller) Wait(ctx context.Context, session *Session) (string, error) {
	// Conditional request validators from the previous response, scoped to
	// this run.
	var etag, lastModified string

	for {
		if ctx.Err() != nil {
			return "", ErrCanceled
		}
		if !p.now().Before(session.ExpiresAt) {
			return "", ErrTimedOut
		}

		resp, err := p.poll(ctx, session, etag, lastModified)
		if err != nil {
			// An interrupt mid-request surfaces as a context error from
			// the transport; the in-flight result is discarded.
			if ctx.Err() != nil {
				return "", ErrCanceled
			}
			return "", err
		}

		if resp != nil {
			etag = resp.header.Get("ETag")
			lastModified = resp.header.Get("Last-Modified")

			switch resp.body.Status {
			case statusApproved:
				return credentialPayload(resp.body.TokenPayload)
			case statusDenied:
				return "", &DeniedError{Reason: resp.body.DeniedReason}
			case statusExpired:
				return "", ErrExpired
			case statusPending:
				// keep waiting
			default:
				return "", fmt.Errorf("backend returned unknown pairing status %q", resp.body.Status)
			}
		}

		select {
		case <-ctx.Done():
			return "", ErrCanceled
		case <-time.After(p.interval):
		}
	}
}

type pollOutcome struct {
	body   pollResponse
	header http.Header
}

// poll issues one conditional poll request. A nil outcome with nil error
// means "unchanged": still pending, no new information.
func (p *Poller) poll(ctx context.Context, session *Session, etag, lastModified string) (*pollOutcome, error) {
	header := http.Header{}
	header.Set(pollTokenHeader, session.PollToken)
	if etag != "" {
		header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		header.Set("If-Modified-Since", lastModified)
	}

	resp, err := p.client.Do(ctx, &apiclient.Request{
		Method: http.MethodGet,
		Path:   session.PollingURL,
		Header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("polling pairing session: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}

	outcome := &pollOutcome{header: resp.Header}
	if err := resp.Decode(&outcome.body); err != nil {
		return nil, fmt.Errorf("reading poll response: %w", err)
	}

	return outcome, nil
}

// credentialPayload extracts the approved credential from the poll
// response. The backend may send a JSON string or a structured record; the
// token codec downstream handles both, so the raw form is preserved.
func credentialPayload(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("backend approved the pairing without a credential")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("backend approved the pairing without a credential")
		}
		return s, nil
	}

	return string(raw), nil
}
