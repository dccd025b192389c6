package tokensource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Sopamo/curlydots-cli/internal/tokenstore"
)

// Authenticator runs one interactive pairing flow and returns the raw
// credential payload approved by the user. Implemented by pairing.Flow.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Manager owns the credential lifecycle for one command invocation: it
// decides whether the cached credential is usable and otherwise drives a
// full pairing flow and persists the result.
type Manager struct {
	store tokenstore.TokenStore
	auth  Authenticator

	// login collapses concurrent interactive logins into one. The guard
	// lives on the instance, not in package state.
	login singleflight.Group

	now func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager.
func NewManager(store tokenstore.TokenStore, auth Authenticator, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if auth == nil {
		return nil, fmt.Errorf("missing authenticator")
	}

	m := &Manager{
		store: store,
		auth:  auth,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Token returns a valid access token, running an interactive login first if
// no usable credential is stored. The single entry point consumers use.
func (m *Manager) Token(ctx context.Context) (string, error) {
	token, err := m.currentToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// currentToken returns the cached token when usable, otherwise logs in.
func (m *Manager) currentToken(ctx context.Context) (AuthToken, error) {
	raw, err := m.store.Read(ctx)
	if err == nil {
		token := Normalize(raw)
		if token.Valid(m.now()) {
			return token, nil
		}
		slog.DebugContext(ctx, "stored credential expired or expiring, starting login",
			"expires_at", token.ExpiresAt)
	} else if !errors.Is(err, tokenstore.ErrNotFound) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AuthToken{}, ctxErr
		}
		// Unreadable credential state degrades to a fresh login.
		slog.DebugContext(ctx, "credential load failed, starting login", "error", err)
	}

	return m.Login(ctx)
}

// Login unconditionally runs the pairing flow and persists the approved
// credential, overwriting whatever was stored before. Concurrent callers
// within the process share a single flow.
func (m *Manager) Login(ctx context.Context) (AuthToken, error) {
	v, err, _ := m.login.Do("login", func() (any, error) {
		return m.performLogin(ctx)
	})
	if err != nil {
		return AuthToken{}, err
	}
	return v.(AuthToken), nil
}

func (m *Manager) performLogin(ctx context.Context) (AuthToken, error) {
	payload, err := m.auth.Authenticate(ctx)
	if err != nil {
		return AuthToken{}, err
	}

	token := Normalize(payload)

	encoded, err := token.Encode()
	if err != nil {
		return AuthToken{}, fmt.Errorf("encoding credential for storage: %w", err)
	}
	if err := m.store.Write(ctx, encoded); err != nil {
		// The session is still usable; only the next invocation pays.
		slog.ErrorContext(ctx, "failed to persist credential", "error", err)
	}

	return token, nil
}

// Logout clears the persisted credential from all backends.
func (m *Manager) Logout(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// OAuth2TokenSource adapts the Manager to oauth2.TokenSource so consumers
// can mount the credential on an oauth2.Transport. The oauth2 interface has
// no context parameter, so the context is captured at construction, the
// same way oauth2.Config.TokenSource does.
func (m *Manager) OAuth2TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

// Compile-time check to ensure managerTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*managerTokenSource)(nil)

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.manager.currentToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
		TokenType:    "Bearer",
	}, nil
}
