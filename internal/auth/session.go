package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/domain"
)

// SessionState enumerates session manager states.
type SessionState string

const (
	StateInitializing    SessionState = "initializing"
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
)

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	State SessionState
	User  *domain.User
	Role  domain.RoleTag
	Err   string
}

// SessionManager tracks the signed-in identity and its resolved role. It is
// constructed once at application start and passed by reference; all session
// mutation happens here. Provider push events and direct calls drive the
// same transitions, and every provider failure resolves to a terminal state.
type SessionManager struct {
	provider  Provider
	roles     authz.RoleStore
	evaluator *authz.Evaluator
	logger    *zap.Logger

	mu     sync.Mutex
	state  SessionState
	user   *domain.User
	role   domain.RoleTag
	errMsg string
	// gen invalidates in-flight role loads from superseded sessions.
	gen uint64
}

// NewSessionManager builds the manager and subscribes it to provider events.
func NewSessionManager(provider Provider, roles authz.RoleStore, evaluator *authz.Evaluator, logger *zap.Logger) *SessionManager {
	m := &SessionManager{
		provider:  provider,
		roles:     roles,
		evaluator: evaluator,
		logger:    logger,
		state:     StateInitializing,
	}
	provider.OnAuthStateChange(m.handleAuthEvent)
	return m
}

// Start resolves any existing provider session. A found session loads the
// role; a user without one gets the default role assigned.
func (m *SessionManager) Start(ctx context.Context) {
	session, err := m.provider.GetSession(ctx)
	if err != nil {
		m.logger.Warn("session lookup failed", zap.Error(err))
		m.toUnauthenticated(err.Error())
		return
	}
	if session == nil || session.User == nil {
		m.toUnauthenticated("")
		return
	}
	gen := m.begin()
	m.loadRole(ctx, gen, session.User)
}

// SignIn authenticates with credentials. The role is committed by the
// ensuing SIGNED_IN event.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) error {
	m.begin()
	if _, err := m.provider.SignInWithPassword(ctx, email, password); err != nil {
		m.toUnauthenticated(err.Error())
		return err
	}
	return nil
}

// SignUp registers a new account; the default role is assigned as a side
// effect of registration.
func (m *SessionManager) SignUp(ctx context.Context, name, email, password string) error {
	m.begin()
	if _, err := m.provider.SignUp(ctx, name, email, password); err != nil {
		m.toUnauthenticated(err.Error())
		return err
	}
	return nil
}

// SignInAnonymously creates a demo session without credentials.
func (m *SessionManager) SignInAnonymously(ctx context.Context) error {
	m.begin()
	if _, err := m.provider.SignInAnonymously(ctx); err != nil {
		m.toUnauthenticated(err.Error())
		return err
	}
	return nil
}

// SignOut clears the session and cached role. Provider errors are captured
// into the error message; the session is cleared regardless.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.begin()
	errMsg := ""
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("sign out failed", zap.Error(err))
		errMsg = err.Error()
	}
	m.toUnauthenticated(errMsg)
}

// HasPermission evaluates a permission for the current session's user.
func (m *SessionManager) HasPermission(ctx context.Context, permission domain.Permission, resource *authz.Resource) bool {
	m.mu.Lock()
	state, user := m.state, m.user
	m.mu.Unlock()

	if state != StateAuthenticated || user == nil {
		return false
	}
	return m.evaluator.Check(ctx, user.ID, permission, resource)
}

// Current returns a snapshot of the session.
func (m *SessionManager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, User: m.user, Role: m.role, Err: m.errMsg}
}

func (m *SessionManager) handleAuthEvent(event Event, session *ProviderSession) {
	switch event {
	case EventSignedOut:
		m.toUnauthenticated("")
	case EventSignedIn, EventUserUpdated:
		if session == nil || session.User == nil {
			return
		}
		m.mu.Lock()
		if m.state == StateAuthenticated && m.user != nil && m.user.ID == session.User.ID {
			// Same identity: refresh the profile without a second role load.
			m.user = session.User
			m.mu.Unlock()
			return
		}
		m.gen++
		gen := m.gen
		m.state = StateAuthenticating
		m.errMsg = ""
		m.mu.Unlock()
		m.loadRole(context.Background(), gen, session.User)
	}
}

// begin moves into authenticating and invalidates in-flight role loads.
func (m *SessionManager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = StateAuthenticating
	m.errMsg = ""
	return m.gen
}

func (m *SessionManager) toUnauthenticated(errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = StateUnauthenticated
	m.user = nil
	m.role = ""
	m.errMsg = errMsg
}

// loadRole fetches the role for user and commits it unless the session was
// superseded while the fetch was in flight.
func (m *SessionManager) loadRole(ctx context.Context, gen uint64, user *domain.User) {
	role, ok := m.roles.GetRole(ctx, user.ID)
	if !ok {
		assignment, err := m.roles.SetRole(ctx, user.ID, domain.RoleUser)
		if err != nil {
			m.logger.Warn("default role assignment failed", zap.String("user_id", user.ID), zap.Error(err))
			m.mu.Lock()
			if m.gen == gen {
				m.state = StateUnauthenticated
				m.user = nil
				m.role = ""
				m.errMsg = "could not resolve account role"
			}
			m.mu.Unlock()
			return
		}
		role = assignment.Role
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// A newer sign-in or sign-out superseded this load; discard it.
		return
	}
	m.state = StateAuthenticated
	m.user = user
	m.role = role
	m.errMsg = ""
}
