package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/testutil"
)

type fixture struct {
	store     *testutil.MemStore
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	auth      *AuthService
	employees *EmployeeService
	throttle  *fakeThrottle

	mu        sync.Mutex
	published []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemStore()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30})
	require.NoError(t, err)
	gate := auth.NewGate(tokens, auth.NewIdentityResolver(store.Users()), nil, zap.NewNop())
	recorder := audit.NewRecorder()
	dispatcher := events.NewInMemoryDispatcher()
	throttle := newFakeThrottle()

	f := &fixture{store: store, hasher: hasher, tokens: tokens, throttle: throttle}
	for _, et := range []events.EventType{events.EventEmployeeCreated, events.EventEmployeeUpdated, events.EventEmployeeDeactivated} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return nil
		})
	}

	f.auth = NewAuthService(AuthDependencies{
		Store:    store,
		Hasher:   hasher,
		Tokens:   tokens,
		Recorder: recorder,
		Throttle: throttle,
	})
	f.employees = NewEmployeeService(EmployeeDependencies{
		Store:      store,
		Gate:       gate,
		Recorder:   recorder,
		Dispatcher: dispatcher,
	})
	return f
}

func (f *fixture) user(t *testing.T, email, password string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: hash, Role: role, IsActive: active}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) events() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.published...)
}

type fakeThrottle struct {
	mu       sync.Mutex
	locked   map[string]bool
	failures map[string]int
	resets   map[string]int
}

func newFakeThrottle() *fakeThrottle {
	return &fakeThrottle{locked: map[string]bool{}, failures: map[string]int{}, resets: map[string]int{}}
}

func (f *fakeThrottle) Locked(_ context.Context, email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked[email]
}

func (f *fakeThrottle) RecordFailure(_ context.Context, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[email]++
}

func (f *fakeThrottle) Reset(_ context.Context, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[email]++
	delete(f.failures, email)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int { return &i }
