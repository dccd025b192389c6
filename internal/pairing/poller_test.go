package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sopamo/curlydots-cli/internal/apiclient"
)

// pollStep is one scripted poll response.
type pollStep func(w http.ResponseWriter, r *http.Request)

func pendingStep() pollStep {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pollResponse{Status: statusPending})
	}
}

func approvedStep(payload string) pollStep {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":        statusApproved,
			"token_payload": payload,
		})
	}
}

// newPollFixture starts a backend that serves the scripted steps in order
// and returns a poller wired to it plus the request counter.
func newPollFixture(t *testing.T, steps ...pollStep) (*Poller, *Session, *atomic.Int32) {
	t.Helper()

	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(polls.Add(1)) - 1
		require.Equal(t, "session-poll-token", r.Header.Get("X-Pairing-Poll-Token"),
			"every poll must carry the session-scoped credential")
		// Extra requests replay the last step; tests that care about the
		// exact count assert on the counter.
		if n >= len(steps) {
			n = len(steps) - 1
		}
		steps[n](w, r)
	}))
	t.Cleanup(server.Close)

	client, err := apiclient.New(server.URL, apiclient.WithMaxRetries(0))
	require.NoError(t, err)

	poller, err := NewPoller(client, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	session := &Session{
		BrowserURL:  server.URL + "/confirm",
		PollingURL:  "/v1/cli/pairings/TEST-CODE",
		PairingCode: "TEST-CODE",
		ExpiresAt:   time.Now().Add(time.Minute),
		PollToken:   "session-poll-token",
	}

	return poller, session, &polls
}

func TestWaitApprovedAfterPending(t *testing.T) {
	poller, session, polls := newPollFixture(t,
		pendingStep(),
		approvedStep("cd_live_approved"),
	)

	credential, err := poller.Wait(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "cd_live_approved", credential)
	assert.Equal(t, int32(2), polls.Load(), "pending then approved must take exactly 2 poll requests")
}

func TestWaitApprovedStructuredPayload(t *testing.T) {
	payload := `{"access_token":"at-1","expires_at":"2030-01-01T00:00:00Z"}`
	poller, session, _ := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"approved","token_payload":` + payload + `}`))
	})

	credential, err := poller.Wait(context.Background(), session)
	require.NoError(t, err)
	assert.JSONEq(t, payload, credential)
}

func TestWaitDenied(t *testing.T) {
	poller, session, polls := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pollResponse{Status: statusDenied, DeniedReason: "rejected by user"})
	})

	_, err := poller.Wait(context.Background(), session)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "rejected by user", denied.Reason)
	assert.Equal(t, int32(1), polls.Load())
}

func TestWaitExpiredServerSide(t *testing.T) {
	poller, session, _ := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pollResponse{Status: statusExpired})
	})

	_, err := poller.Wait(context.Background(), session)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestWaitTimeoutPrecedesAnyPoll(t *testing.T) {
	poller, session, polls := newPollFixture(t, pendingStep())
	session.ExpiresAt = time.Now().Add(-time.Second)

	_, err := poller.Wait(context.Background(), session)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Zero(t, polls.Load(), "an already-expired session must not be polled")
}

func TestWaitCancellationPrecedesAnyPoll(t *testing.T) {
	poller, session, polls := newPollFixture(t, pendingStep())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.Wait(ctx, session)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Zero(t, polls.Load(), "cancellation must win before the first poll")
}

func TestWaitCancellationBetweenPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	poller, session, polls := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		json.NewEncoder(w).Encode(pollResponse{Status: statusPending})
	})

	_, err := poller.Wait(ctx, session)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, int32(1), polls.Load(), "no further polls after cancellation")
}

func TestWaitEchoesConditionalValidators(t *testing.T) {
	var secondPollValidators http.Header
	poller, session, polls := newPollFixture(t,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("If-None-Match"), "first poll carries no validators")
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("Last-Modified", "Mon, 02 Mar 2026 15:04:05 GMT")
			json.NewEncoder(w).Encode(pollResponse{Status: statusPending})
		},
		func(w http.ResponseWriter, r *http.Request) {
			secondPollValidators = r.Header.Clone()
			w.WriteHeader(http.StatusNotModified)
		},
		approvedStep("cd_live_after_304"),
	)

	credential, err := poller.Wait(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "cd_live_after_304", credential)
	assert.Equal(t, int32(3), polls.Load())

	assert.Equal(t, `"v1"`, secondPollValidators.Get("If-None-Match"))
	assert.Equal(t, "Mon, 02 Mar 2026 15:04:05 GMT", secondPollValidators.Get("If-Modified-Since"))
}

func TestWaitTransportFailureAbortsFlow(t *testing.T) {
	poller, session, polls := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := poller.Wait(context.Background(), session)

	var reqErr *apiclient.RequestError
	require.ErrorAs(t, err, &reqErr, "transport failures must surface, not be treated as pending")
	assert.Equal(t, int32(1), polls.Load())
}

func TestWaitUnknownStatusAbortsFlow(t *testing.T) {
	poller, session, _ := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pollResponse{Status: "haywire"})
	})

	_, err := poller.Wait(context.Background(), session)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCanceled)
	assert.NotErrorIs(t, err, ErrTimedOut)
}

func TestWaitApprovedWithoutCredentialFails(t *testing.T) {
	poller, session, _ := newPollFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pollResponse{Status: statusApproved})
	})

	_, err := poller.Wait(context.Background(), session)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCanceled))
}

func TestWaitLocalDeadlineDuringPolling(t *testing.T) {
	// The backend keeps answering pending; the local clock passes the
	// session deadline while the loop is running.
	poller, session, polls := newPollFixture(t, pendingStep())
	session.ExpiresAt = time.Now().Add(12 * time.Millisecond)

	_, err := poller.Wait(context.Background(), session)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.GreaterOrEqual(t, polls.Load(), int32(1))
}
