package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/coupon-service/internal/auth"
	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
)

type noOwnership struct{}

func (noOwnership) IsOwner(context.Context, string, string) bool { return false }

// fakeProvider allows tests to control sessions and push events directly.
type fakeProvider struct {
	session     *auth.ProviderSession
	signInErr   error
	subscribers []auth.StateChangeFunc
}

func (p *fakeProvider) OnAuthStateChange(fn auth.StateChangeFunc) {
	p.subscribers = append(p.subscribers, fn)
}

func (p *fakeProvider) emit(event auth.Event, session *auth.ProviderSession) {
	for _, fn := range p.subscribers {
		fn(event, session)
	}
}

func (p *fakeProvider) SignUp(context.Context, string, string, string) (*auth.ProviderSession, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	p.emit(auth.EventSignedIn, p.session)
	return p.session, nil
}

func (p *fakeProvider) SignInWithPassword(context.Context, string, string) (*auth.ProviderSession, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	p.emit(auth.EventSignedIn, p.session)
	return p.session, nil
}

func (p *fakeProvider) SignInAnonymously(context.Context) (*auth.ProviderSession, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	p.emit(auth.EventSignedIn, p.session)
	return p.session, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.session = nil
	p.emit(auth.EventSignedOut, nil)
	return nil
}

func (p *fakeProvider) GetSession(context.Context) (*auth.ProviderSession, error) {
	return p.session, nil
}

// hookRoleStore runs a callback on every read, letting tests interleave
// events with an in-flight role load.
type hookRoleStore struct {
	inner    *authz.MemoryRoleStore
	onGet    func()
	getCalls int
}

func (s *hookRoleStore) GetRole(ctx context.Context, userID string) (domain.RoleTag, bool) {
	s.getCalls++
	if s.onGet != nil {
		s.onGet()
	}
	return s.inner.GetRole(ctx, userID)
}

func (s *hookRoleStore) SetRole(ctx context.Context, userID string, role domain.RoleTag) (*domain.RoleAssignment, error) {
	return s.inner.SetRole(ctx, userID, role)
}

func sessionFor(id string) *auth.ProviderSession {
	return &auth.ProviderSession{
		User:      &domain.User{ID: id, Name: "User " + id, Email: id + "@example.com"},
		Token:     "token-" + id,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newManager(provider auth.Provider, roles authz.RoleStore) *auth.SessionManager {
	evaluator := authz.NewEvaluator(roles, noOwnership{})
	return auth.NewSessionManager(provider, roles, evaluator, zap.NewNop())
}

func TestStartWithoutSession(t *testing.T) {
	manager := newManager(&fakeProvider{}, authz.NewMemoryRoleStore())

	manager.Start(context.Background())

	snapshot := manager.Current()
	assert.Equal(t, auth.StateUnauthenticated, snapshot.State)
	assert.Nil(t, snapshot.User)
}

func TestStartAssignsDefaultRoleWhenMissing(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	provider := &fakeProvider{session: sessionFor("u1")}
	manager := newManager(provider, roles)

	manager.Start(context.Background())

	snapshot := manager.Current()
	require.Equal(t, auth.StateAuthenticated, snapshot.State)
	assert.Equal(t, domain.RoleUser, snapshot.Role)

	stored, ok := roles.GetRole(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, stored)
}

func TestSignInCommitsRoleViaEvent(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	_, err := roles.SetRole(context.Background(), "u1", domain.RoleManager)
	require.NoError(t, err)

	provider := &fakeProvider{session: sessionFor("u1")}
	manager := newManager(provider, roles)

	require.NoError(t, manager.SignIn(context.Background(), "u1@example.com", "pw"))

	snapshot := manager.Current()
	assert.Equal(t, auth.StateAuthenticated, snapshot.State)
	assert.Equal(t, domain.RoleManager, snapshot.Role)
	assert.True(t, manager.HasPermission(context.Background(), domain.PermissionManageSystem, nil))
}

func TestSignInFailureReturnsToUnauthenticated(t *testing.T) {
	provider := &fakeProvider{signInErr: errors.New("invalid credentials")}
	manager := newManager(provider, authz.NewMemoryRoleStore())

	err := manager.SignIn(context.Background(), "u1@example.com", "bad")
	require.Error(t, err)

	snapshot := manager.Current()
	assert.Equal(t, auth.StateUnauthenticated, snapshot.State)
	assert.Equal(t, "invalid credentials", snapshot.Err)
}

func TestSignOutClearsSessionAndPermissions(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	_, err := roles.SetRole(context.Background(), "u1", domain.RoleManager)
	require.NoError(t, err)

	provider := &fakeProvider{session: sessionFor("u1")}
	manager := newManager(provider, roles)
	require.NoError(t, manager.SignIn(context.Background(), "u1@example.com", "pw"))
	require.True(t, manager.HasPermission(context.Background(), domain.PermissionViewAllCoupons, nil))

	manager.SignOut(context.Background())

	snapshot := manager.Current()
	assert.Equal(t, auth.StateUnauthenticated, snapshot.State)
	assert.Nil(t, snapshot.User)
	assert.Empty(t, snapshot.Role)
	for _, permission := range domain.AllPermissions() {
		assert.False(t, manager.HasPermission(context.Background(), permission, nil))
	}
}

func TestStaleRoleLoadDiscarded(t *testing.T) {
	inner := authz.NewMemoryRoleStore()
	_, err := inner.SetRole(context.Background(), "u1", domain.RoleManager)
	require.NoError(t, err)

	provider := &fakeProvider{session: sessionFor("u1")}
	roles := &hookRoleStore{inner: inner}

	// A sign-out lands while the role fetch is in flight; the fetched
	// role must not resurrect the superseded session.
	fired := false
	roles.onGet = func() {
		if fired {
			return
		}
		fired = true
		provider.emit(auth.EventSignedOut, nil)
	}

	manager := newManager(provider, roles)
	manager.Start(context.Background())

	snapshot := manager.Current()
	assert.Equal(t, auth.StateUnauthenticated, snapshot.State)
	assert.Nil(t, snapshot.User)
	assert.Empty(t, snapshot.Role)
}

func TestDuplicateSignedInEventSkipsRoleReload(t *testing.T) {
	inner := authz.NewMemoryRoleStore()
	_, err := inner.SetRole(context.Background(), "u1", domain.RoleUser)
	require.NoError(t, err)

	provider := &fakeProvider{session: sessionFor("u1")}
	roles := &hookRoleStore{inner: inner}
	manager := newManager(provider, roles)

	require.NoError(t, manager.SignIn(context.Background(), "u1@example.com", "pw"))
	loadsAfterSignIn := roles.getCalls

	// The provider re-announces the same identity; no second fetch.
	provider.emit(auth.EventSignedIn, sessionFor("u1"))
	assert.Equal(t, loadsAfterSignIn, roles.getCalls)
	assert.Equal(t, auth.StateAuthenticated, manager.Current().State)
}

func TestEventForNewIdentitySwitchesSession(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	_, err := roles.SetRole(context.Background(), "u1", domain.RoleUser)
	require.NoError(t, err)
	_, err = roles.SetRole(context.Background(), "u2", domain.RoleDemo)
	require.NoError(t, err)

	provider := &fakeProvider{session: sessionFor("u1")}
	manager := newManager(provider, roles)
	require.NoError(t, manager.SignIn(context.Background(), "u1@example.com", "pw"))

	provider.emit(auth.EventSignedIn, sessionFor("u2"))

	snapshot := manager.Current()
	require.Equal(t, auth.StateAuthenticated, snapshot.State)
	require.NotNil(t, snapshot.User)
	assert.Equal(t, "u2", snapshot.User.ID)
	assert.Equal(t, domain.RoleDemo, snapshot.Role)
}

// fakeCreds backs the LocalProvider the way the auth service does,
// including role assignment at registration.
type fakeCreds struct {
	roles *authz.MemoryRoleStore
	seq   int
}

func (f *fakeCreds) RegisterUser(ctx context.Context, name, email, _ string) (*domain.User, string, time.Time, error) {
	f.seq++
	user := &domain.User{ID: fmt.Sprintf("u%d", f.seq), Name: name, Email: email}
	if _, err := f.roles.SetRole(ctx, user.ID, domain.RoleUser); err != nil {
		return nil, "", time.Time{}, err
	}
	return user, "token", time.Now().Add(time.Hour), nil
}

func (f *fakeCreds) LoginUser(context.Context, string, string) (*domain.User, string, time.Time, error) {
	return nil, "", time.Time{}, errors.New("invalid credentials")
}

func (f *fakeCreds) LoginAnonymous(ctx context.Context) (*domain.User, string, time.Time, error) {
	f.seq++
	user := &domain.User{ID: fmt.Sprintf("u%d", f.seq), Name: "Demo User", Anonymous: true}
	if _, err := f.roles.SetRole(ctx, user.ID, domain.RoleDemo); err != nil {
		return nil, "", time.Time{}, err
	}
	return user, "token", time.Now().Add(time.Hour), nil
}

func TestSignUpDefaultsToUserRole(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	provider := auth.NewLocalProvider(&fakeCreds{roles: roles})
	manager := newManager(provider, roles)

	require.NoError(t, manager.SignUp(context.Background(), "New User", "new@example.com", "pw"))

	snapshot := manager.Current()
	require.Equal(t, auth.StateAuthenticated, snapshot.State)
	assert.Equal(t, domain.RoleUser, snapshot.Role)

	stored, ok := roles.GetRole(context.Background(), snapshot.User.ID)
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, stored)
}

func TestAnonymousSignInGetsDemoRole(t *testing.T) {
	roles := authz.NewMemoryRoleStore()
	provider := auth.NewLocalProvider(&fakeCreds{roles: roles})
	manager := newManager(provider, roles)

	require.NoError(t, manager.SignInAnonymously(context.Background()))

	snapshot := manager.Current()
	require.Equal(t, auth.StateAuthenticated, snapshot.State)
	assert.Equal(t, domain.RoleDemo, snapshot.Role)
	assert.True(t, manager.HasPermission(context.Background(), domain.PermissionViewOwnCoupons, nil))
	assert.False(t, manager.HasPermission(context.Background(), domain.PermissionCreateCoupon, nil))
}
