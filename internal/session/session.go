// Package session owns the authenticated-session lifecycle: acquiring a
// credential, persisting it, validating it at startup, exposing the
// current user to the rest of the application, and signing out.
//
// A Manager is the single source of truth for "is the user
// authenticated, and as whom". It is created by the composition root
// and passed explicitly to whatever consumes it; there is no package
// global. The stored credential and the in-memory state are kept
// consistent: whenever the in-memory credential is cleared, the stored
// one has already been cleared first.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fittrack/internal/api"
)

// Status is the session's authentication state.
type Status string

const (
	// StatusInitializing is the state before the stored credential has
	// been checked. A process enters it exactly once, at startup, and
	// never returns to it.
	StatusInitializing Status = "initializing"

	// StatusUnauthenticated means no usable credential is held.
	StatusUnauthenticated Status = "unauthenticated"

	// StatusAuthenticated means a credential and the matching user
	// profile are both present.
	StatusAuthenticated Status = "authenticated"
)

// Manager misuse errors. These indicate caller bugs, not I/O outcomes.
var (
	// ErrAlreadyInitialized is returned when Initialize is called more
	// than once per process lifetime.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrOperationInFlight is returned when a mutating operation is
	// invoked while another one is still running. Operations are
	// rejected rather than queued.
	ErrOperationInFlight = errors.New("session operation already in flight")

	// ErrMissingInput is returned when login or register receives an
	// empty identifier or secret.
	ErrMissingInput = errors.New("missing required input")
)

// TokenStore is the credential persistence consumed by the Manager.
// An absent token reads as ("", nil).
type TokenStore interface {
	GetToken() (string, error)
	SetToken(token string) error
	RemoveToken() error
}

// AuthService is the slice of the backend API the Manager depends on.
type AuthService interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error)
	CurrentUser(ctx context.Context, token string) (*api.UserProfile, error)
}

// Snapshot is a point-in-time read of the session state.
type Snapshot struct {
	Status Status
	User   *api.UserProfile
	Token  string
}

// Manager is the process-wide session state machine.
type Manager struct {
	store  TokenStore
	auth   AuthService
	logger *slog.Logger

	initTimeout time.Duration
	authTimeout time.Duration

	mu          sync.Mutex
	status      Status
	token       string
	user        *api.UserProfile
	initialized bool
	inFlight    bool
}

// NewManager creates a Manager in the Initializing state.
func NewManager(store TokenStore, auth AuthService, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		auth:        auth,
		logger:      slog.Default(),
		initTimeout: 10 * time.Second,
		authTimeout: 15 * time.Second,
		status:      StatusInitializing,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize checks the stored credential and settles the session into
// a terminal state. It never propagates I/O failures: any outcome other
// than a successful profile fetch leaves the session Unauthenticated,
// and a credential that failed validation is purged from the store so
// the next start skips the doomed fetch.
//
// Initialize must be called exactly once; a second call returns
// ErrAlreadyInitialized without touching the state.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.inFlight = true
	m.mu.Unlock()
	defer m.endOp()

	token, err := m.store.GetToken()
	if err != nil {
		// A store that cannot be read is treated as holding no token.
		m.logger.Warn("credential store unreadable, starting unauthenticated", "error", err)
		m.settle(StatusUnauthenticated, "", nil)
		return nil
	}
	if token == "" {
		m.settle(StatusUnauthenticated, "", nil)
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.initTimeout)
	defer cancel()

	user, err := m.auth.CurrentUser(fetchCtx, token)
	if err != nil {
		// Stored credential is not usable right now. Purge it so the
		// next launch goes straight to the login screen; see the
		// policy note in DESIGN.md for the trade-off on transient
		// network failures.
		m.logger.Info("stored credential failed validation, purging",
			"invalid", errors.Is(err, api.ErrInvalidCredentials),
			"error", err,
		)
		if rmErr := m.store.RemoveToken(); rmErr != nil {
			m.logger.Warn("failed to purge stored credential", "error", rmErr)
		}
		m.settle(StatusUnauthenticated, "", nil)
		return nil
	}

	m.settle(StatusAuthenticated, token, user)
	m.logger.Info("session restored", "username", user.Username)
	return nil
}

// Login authenticates with email and password. On success the returned
// token is persisted before the in-memory state flips to Authenticated.
// On failure the session state is unchanged and the classified error is
// returned for the caller to render.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingInput
	}
	if err := m.beginOp(); err != nil {
		return err
	}
	defer m.endOp()

	authCtx, cancel := context.WithTimeout(ctx, m.authTimeout)
	defer cancel()

	resp, err := m.auth.Login(authCtx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	return m.adopt(resp)
}

// Register creates an account and signs in with it in one step. The
// contract mirrors Login: persist first, then flip state; failures
// leave the session untouched.
func (m *Manager) Register(ctx context.Context, username, email, password string, dailyCalorieGoal int) error {
	if username == "" || email == "" || password == "" {
		return ErrMissingInput
	}
	if err := m.beginOp(); err != nil {
		return err
	}
	defer m.endOp()

	authCtx, cancel := context.WithTimeout(ctx, m.authTimeout)
	defer cancel()

	resp, err := m.auth.Register(authCtx, api.RegisterRequest{
		Username:         username,
		Email:            email,
		Password:         password,
		DailyCalorieGoal: dailyCalorieGoal,
	})
	if err != nil {
		return err
	}

	return m.adopt(resp)
}

// adopt persists a freshly issued credential and moves the session to
// Authenticated. If persistence fails, the in-memory state stays where
// it was: a session must never claim a credential the store lost.
func (m *Manager) adopt(resp *api.TokenResponse) error {
	if err := m.store.SetToken(resp.AccessToken); err != nil {
		return err
	}
	user := resp.User
	m.settle(StatusAuthenticated, resp.AccessToken, &user)
	m.logger.Info("signed in", "username", user.Username)
	return nil
}

// Logout removes the stored credential, then clears the in-memory
// session. The storage removal is awaited first so a concurrent reader
// never observes "no stored credential, but still Authenticated"; the
// reverse transient converges when the in-memory state is cleared just
// after. A storage failure propagates for diagnostics, but the local
// session is cleared regardless. Logging out while already
// unauthenticated is a no-op, not an error.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.beginOp(); err != nil {
		return err
	}
	defer m.endOp()

	rmErr := m.store.RemoveToken()
	m.settle(StatusUnauthenticated, "", nil)
	if rmErr != nil {
		m.logger.Warn("credential removal failed, session cleared locally", "error", rmErr)
		return rmErr
	}
	m.logger.Info("signed out")
	return nil
}

// RefreshUser re-fetches the profile for the current credential and
// overwrites the cached user. Without a credential it is a no-op.
// Failures are logged and swallowed: this is a best-effort refresh for
// display purposes, and a stale profile is better than a broken caller.
func (m *Manager) RefreshUser(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.initTimeout)
	defer cancel()

	user, err := m.auth.CurrentUser(fetchCtx, token)
	if err != nil {
		m.logger.Warn("profile refresh failed, keeping stale profile", "error", err)
		return
	}

	m.mu.Lock()
	// The session may have been logged out while the fetch was in
	// flight; do not resurrect a cleared user.
	if m.token == token {
		m.user = user
	}
	m.mu.Unlock()
}

// Status returns the current authentication state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// CurrentUser returns the cached profile, or nil when unauthenticated.
func (m *Manager) CurrentUser() *api.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the in-memory credential, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Current returns a consistent snapshot of status, user, and credential.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{Status: m.status, Token: m.token}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// beginOp claims the single mutating-operation slot.
func (m *Manager) beginOp() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrOperationInFlight
	}
	m.inFlight = true
	return nil
}

// endOp releases the mutating-operation slot.
func (m *Manager) endOp() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}

// settle applies a state transition atomically.
func (m *Manager) settle(status Status, token string, user *api.UserProfile) {
	m.mu.Lock()
	m.status = status
	m.token = token
	m.user = user
	m.mu.Unlock()
}
