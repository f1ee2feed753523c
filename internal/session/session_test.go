package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"fittrack/internal/api"
)

// fakeStore is an in-memory TokenStore with injectable failures.
type fakeStore struct {
	mu        sync.Mutex
	token     string
	getErr    error
	setErr    error
	removeErr error
	setCalls  int
}

func (s *fakeStore) GetToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.token, nil
}

func (s *fakeStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.token = token
	return nil
}

func (s *fakeStore) RemoveToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.token = ""
	return nil
}

func (s *fakeStore) stored() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// fakeAuth is an AuthService with canned responses. When block is
// non-nil, Login waits on it before returning.
type fakeAuth struct {
	mu           sync.Mutex
	loginResp    *api.TokenResponse
	loginErr     error
	registerResp *api.TokenResponse
	registerErr  error
	userResp     *api.UserProfile
	userErr      error
	entered      chan struct{}
	block        chan struct{}
}

func (a *fakeAuth) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return a.loginResp, nil
}

func (a *fakeAuth) Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.registerErr != nil {
		return nil, a.registerErr
	}
	return a.registerResp, nil
}

func (a *fakeAuth) CurrentUser(ctx context.Context, token string) (*api.UserProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.userErr != nil {
		return nil, a.userErr
	}
	return a.userResp, nil
}

func (a *fakeAuth) setUser(u *api.UserProfile) {
	a.mu.Lock()
	a.userResp = u
	a.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestManager(store *fakeStore, auth AuthService, opts ...Option) *Manager {
	all := append([]Option{WithLogger(quietLogger())}, opts...)
	return NewManager(store, auth, all...)
}

func alexProfile() *api.UserProfile {
	return &api.UserProfile{ID: "1", Username: "alex", Email: "a@x.com", DailyCalorieGoal: 2000}
}

func TestInitializeFreshInstall(t *testing.T) {
	store := &fakeStore{}
	mgr := newTestManager(store, &fakeAuth{})

	if got := mgr.Status(); got != StatusInitializing {
		t.Fatalf("expected initializing before Initialize, got %s", got)
	}
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", got)
	}
	if mgr.CurrentUser() != nil {
		t.Errorf("expected no current user on fresh install")
	}
}

func TestInitializeReturningUser(t *testing.T) {
	store := &fakeStore{token: "abc"}
	auth := &fakeAuth{userResp: alexProfile()}
	mgr := newTestManager(store, auth)

	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %s", got)
	}
	if got := mgr.CurrentUser().Username; got != "alex" {
		t.Errorf("expected username alex, got %s", got)
	}
	if got := mgr.Token(); got != "abc" {
		t.Errorf("expected token abc, got %q", got)
	}
	if got := store.stored(); got != "abc" {
		t.Errorf("expected token kept in store, got %q", got)
	}
}

func TestInitializeStaleTokenPurged(t *testing.T) {
	store := &fakeStore{token: "expired"}
	auth := &fakeAuth{userErr: &api.AuthError{Status: 401, Message: "token expired"}}
	mgr := newTestManager(store, auth)

	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", got)
	}
	if got := store.stored(); got != "" {
		t.Errorf("expected stored token purged, got %q", got)
	}
}

// Initialization must settle into a terminal state for every failure
// class, and never stay in Initializing.
func TestInitializeAlwaysTerminates(t *testing.T) {
	cases := []struct {
		name    string
		store   *fakeStore
		userErr error
	}{
		{"unauthorized", &fakeStore{token: "t"}, &api.AuthError{Status: 401}},
		{"server fault", &fakeStore{token: "t"}, &api.ServerError{Status: 500}},
		{"timeout", &fakeStore{token: "t"}, &api.TransportError{Cause: context.DeadlineExceeded, Timeout: true}},
		{"unreachable", &fakeStore{token: "t"}, &api.TransportError{Cause: errors.New("connection refused")}},
		{"unclassified", &fakeStore{token: "t"}, &api.UnexpectedStatusError{Status: 418}},
		{"store read failure", &fakeStore{getErr: errors.New("disk error")}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mgr := newTestManager(tc.store, &fakeAuth{userErr: tc.userErr})
			if err := mgr.Initialize(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := mgr.Status(); got != StatusUnauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
		})
	}
}

func TestInitializeAppliesTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{token: "t"}
	mgr := newTestManager(store, &deadlineAuth{}, WithInitTimeout(20*time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mgr.Initialize(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Initialize did not terminate within the timeout bound")
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("expected unauthenticated after timeout, got %s", got)
	}
}

// deadlineAuth blocks every call until its context expires.
type deadlineAuth struct{}

func (deadlineAuth) Login(ctx context.Context, _ api.LoginRequest) (*api.TokenResponse, error) {
	<-ctx.Done()
	return nil, &api.TransportError{Cause: ctx.Err(), Timeout: true}
}

func (deadlineAuth) Register(ctx context.Context, _ api.RegisterRequest) (*api.TokenResponse, error) {
	<-ctx.Done()
	return nil, &api.TransportError{Cause: ctx.Err(), Timeout: true}
}

func (deadlineAuth) CurrentUser(ctx context.Context, _ string) (*api.UserProfile, error) {
	<-ctx.Done()
	return nil, &api.TransportError{Cause: ctx.Err(), Timeout: true}
}

func TestInitializeExactlyOnce(t *testing.T) {
	mgr := newTestManager(&fakeStore{}, &fakeAuth{})
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	if err := mgr.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("second Initialize must not disturb state, got %s", got)
	}
}

func TestLoginSuccess(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{loginResp: &api.TokenResponse{AccessToken: "tok1", User: *alexProfile()}}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Login(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Errorf("expected authenticated, got %s", got)
	}
	if got := mgr.CurrentUser().Username; got != "alex" {
		t.Errorf("expected username alex, got %s", got)
	}
	if got := store.stored(); got != "tok1" {
		t.Errorf("expected token tok1 stored, got %q", got)
	}
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{loginErr: &api.AuthError{Status: 401, Message: "invalid email or password"}}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := mgr.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("expected state unchanged, got %s", got)
	}
	if store.setCalls != 0 {
		t.Errorf("store must not be written on failed login, got %d writes", store.setCalls)
	}
}

func TestLoginPersistFailureDoesNotAuthenticate(t *testing.T) {
	store := &fakeStore{setErr: errors.New("disk full")}
	auth := &fakeAuth{loginResp: &api.TokenResponse{AccessToken: "tok1", User: *alexProfile()}}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Login(context.Background(), "a@x.com", "secret"); err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("session must not claim a credential the store lost, got %s", got)
	}
}

func TestLoginMissingInput(t *testing.T) {
	mgr := newTestManager(&fakeStore{}, &fakeAuth{})
	if err := mgr.Login(context.Background(), "", "secret"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput for empty email, got %v", err)
	}
	if err := mgr.Login(context.Background(), "a@x.com", ""); !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput for empty password, got %v", err)
	}
}

func TestRegisterAutoLogin(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{registerResp: &api.TokenResponse{AccessToken: "tok2", User: *alexProfile()}}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Register(context.Background(), "alex", "a@x.com", "secret", 2200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Errorf("expected authenticated straight after register, got %s", got)
	}
	if got := store.stored(); got != "tok2" {
		t.Errorf("expected token tok2 stored, got %q", got)
	}
}

func TestLoginThenLogout(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{loginResp: &api.TokenResponse{AccessToken: "tok1", User: *alexProfile()}}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Login(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", got)
	}
	if got := store.stored(); got != "" {
		t.Errorf("expected store emptied, got %q", got)
	}
	if mgr.CurrentUser() != nil {
		t.Errorf("expected no current user after logout")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	mgr := newTestManager(&fakeStore{}, &fakeAuth{})
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Logout(context.Background()); err != nil {
		t.Errorf("logout while unauthenticated must not fail, got %v", err)
	}
	if err := mgr.Logout(context.Background()); err != nil {
		t.Errorf("repeated logout must not fail, got %v", err)
	}
}

func TestLogoutStorageFailureStillClearsSession(t *testing.T) {
	store := &fakeStore{token: "abc", removeErr: errors.New("device busy")}
	auth := &fakeAuth{userResp: alexProfile()}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Logout(context.Background()); err == nil {
		t.Error("expected storage failure to propagate")
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Errorf("local session must clear even when storage fails, got %s", got)
	}
}

func TestRefreshUserNoCredential(t *testing.T) {
	mgr := newTestManager(&fakeStore{}, &fakeAuth{})
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Must be a silent no-op.
	mgr.RefreshUser(context.Background())
	if mgr.CurrentUser() != nil {
		t.Error("refresh without credential must not populate a user")
	}
}

func TestRefreshUserOverwritesProfile(t *testing.T) {
	store := &fakeStore{token: "abc"}
	auth := &fakeAuth{userResp: alexProfile()}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	updated := alexProfile()
	updated.WorkoutStreak = 7
	auth.setUser(updated)

	mgr.RefreshUser(context.Background())
	if got := mgr.CurrentUser().WorkoutStreak; got != 7 {
		t.Errorf("expected refreshed streak 7, got %d", got)
	}
}

func TestRefreshUserFailureKeepsStaleProfile(t *testing.T) {
	store := &fakeStore{token: "abc"}
	auth := &fakeAuth{userResp: alexProfile()}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	auth.mu.Lock()
	auth.userErr = &api.ServerError{Status: 503}
	auth.mu.Unlock()

	mgr.RefreshUser(context.Background())
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Errorf("failed refresh must not sign the user out, got %s", got)
	}
	if got := mgr.CurrentUser().Username; got != "alex" {
		t.Errorf("expected stale profile kept, got %s", got)
	}
}

func TestSecondLoginRejectedWhileInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{}
	auth := &fakeAuth{
		loginResp: &api.TokenResponse{AccessToken: "tok1", User: *alexProfile()},
		entered:   make(chan struct{}, 1),
		block:     make(chan struct{}),
	}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- mgr.Login(context.Background(), "a@x.com", "secret")
	}()

	// Wait until the first login holds the operation slot.
	select {
	case <-auth.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first login never reached the auth service")
	}

	if err := mgr.Login(context.Background(), "b@x.com", "other"); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}

	close(auth.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first login should succeed: %v", err)
	}
	if got := mgr.CurrentUser().Email; got != "a@x.com" {
		t.Errorf("expected the first login's user, got %s", got)
	}
}

func TestSnapshotConsistency(t *testing.T) {
	store := &fakeStore{token: "abc"}
	auth := &fakeAuth{userResp: alexProfile()}
	mgr := newTestManager(store, auth)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := mgr.Current()
	if snap.Status != StatusAuthenticated || snap.Token != "abc" || snap.User == nil {
		t.Fatalf("inconsistent snapshot: %+v", snap)
	}

	// The snapshot must be a copy, not a window into manager state.
	snap.User.Username = "mallory"
	if got := mgr.CurrentUser().Username; got != "alex" {
		t.Errorf("snapshot mutation leaked into manager state: %s", got)
	}
}

// The authenticated-iff invariant: credential and user are either both
// present or both absent, in every reachable state.
func TestStatusInvariant(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{loginResp: &api.TokenResponse{AccessToken: "tok1", User: *alexProfile()}}
	mgr := newTestManager(store, auth)

	check := func(step string) {
		snap := mgr.Current()
		authed := snap.Status == StatusAuthenticated
		if authed != (snap.Token != "" && snap.User != nil) {
			t.Errorf("%s: invariant violated: %+v", step, snap)
		}
	}

	check("initializing")
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	check("after initialize")
	if err := mgr.Login(context.Background(), "a@x.com", "secret"); err != nil {
		t.Fatal(err)
	}
	check("after login")
	if err := mgr.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	check("after logout")
}

func ExampleManager() {
	store := &fakeStore{}
	auth := &fakeAuth{loginResp: &api.TokenResponse{
		AccessToken: "tok1",
		User:        api.UserProfile{ID: "1", Username: "alex", Email: "a@x.com"},
	}}

	mgr := NewManager(store, auth, WithLogger(quietLogger()))
	_ = mgr.Initialize(context.Background())
	_ = mgr.Login(context.Background(), "a@x.com", "secret")

	fmt.Println(mgr.Status())
	fmt.Println(mgr.CurrentUser().Username)
	// Output:
	// authenticated
	// alex
}
