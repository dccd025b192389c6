package pairing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
)

// Session is one pairing attempt against the backend. Owned exclusively by
// a single login attempt and discarded once the attempt resolves; never
// persisted.
type Session struct {
	// BrowserURL is what the user opens to confirm the pairing.
	BrowserURL string
	// PollingURL addresses this session's poll endpoint.
	PollingURL string
	// PairingCode is the short code the browser UI shows; the CLI prints
	// the same code so the user can match the two.
	PairingCode string
	// ExpiresAt bounds the whole attempt; the poller enforces it locally
	// even without a server response.
	ExpiresAt time.Time
	// PollToken authorizes polling requests for this session only.
	PollToken string
}

type createSessionRequest struct {
	DeviceLabel     string `json:"device_label"`
	FingerprintHash string `json:"fingerprint_hash"`
	CLIVersion      string `json:"cli_version"`
}

type createSessionResponse struct {
	Code            string    `json:"code"`
	VerificationURL string    `json:"verification_url"`
	ExpiresAt       time.Time `json:"expires_at"`
	PollToken       string    `json:"poll_token"`
}

// Initiator creates pairing sessions.
type Initiator struct {
	client  *apiclient.Client
	version string
}

// NewInitiator creates an Initiator. version is the CLI version reported to
// the backend.
func NewInitiator(client *apiclient.Client, version string) (*Initiator, error) {
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}

	return &Initiator{
		client:  client,
		version: version,
	}, nil
}

// CreateSession registers a pairing session for this device. Backend
// failures surface as *apiclient.RequestError; the login attempt aborts
// before any polling begins.
func (i *Initiator) CreateSession(ctx context.Context, device DeviceInfo) (*Session, error) {
	resp, err := i.client.Do(ctx, &apiclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/cli/pairings",
		Body: &createSessionRequest{
			DeviceLabel:     device.Label(),
			FingerprintHash: device.Fingerprint(),
			CLIVersion:      i.version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating pairing session: %w", err)
	}

	var payload createSessionResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("reading pairing session: %w", err)
	}
	if payload.Code == "" || payload.VerificationURL == "" || payload.PollToken == "" {
		return nil, fmt.Errorf("backend returned an incomplete pairing session")
	}

	return &Session{
		BrowserURL:  payload.VerificationURL,
		PollingURL:  "/v1/cli/pairings/" + payload.Code,
		PairingCode: payload.Code,
		ExpiresAt:   payload.ExpiresAt,
		PollToken:   payload.PollToken,
	}, nil
}
