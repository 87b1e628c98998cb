package auth

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/coupon-service/internal/domain"
)

// Event identifies auth state changes pushed by a provider.
type Event string

const (
	EventSignedIn    Event = "SIGNED_IN"
	EventSignedOut   Event = "SIGNED_OUT"
	EventUserUpdated Event = "USER_UPDATED"
)

// ProviderSession carries the authenticated identity and its token.
type ProviderSession struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// StateChangeFunc receives provider push events. The session is nil for
// SIGNED_OUT.
type StateChangeFunc func(event Event, session *ProviderSession)

// Provider is the external auth boundary the session manager consumes.
type Provider interface {
	SignUp(ctx context.Context, name, email, password string) (*ProviderSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error)
	SignInAnonymously(ctx context.Context) (*ProviderSession, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*ProviderSession, error)
	OnAuthStateChange(fn StateChangeFunc)
}

// CredentialService performs the actual account operations the local
// provider delegates to.
type CredentialService interface {
	RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error)
	LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error)
	LoginAnonymous(ctx context.Context) (*domain.User, string, time.Time, error)
}

// LocalProvider adapts the credential service to the Provider interface and
// pushes state-change events to subscribers.
type LocalProvider struct {
	mu          sync.Mutex
	creds       CredentialService
	session     *ProviderSession
	subscribers []StateChangeFunc
}

// NewLocalProvider builds a provider over the credential service.
func NewLocalProvider(creds CredentialService) *LocalProvider {
	return &LocalProvider{creds: creds}
}

// OnAuthStateChange registers a subscriber for push events.
func (p *LocalProvider) OnAuthStateChange(fn StateChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// SignUp registers a new account and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, name, email, password string) (*ProviderSession, error) {
	user, token, exp, err := p.creds.RegisterUser(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return p.commit(user, token, exp), nil
}

// SignInWithPassword authenticates with credentials.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error) {
	user, token, exp, err := p.creds.LoginUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.commit(user, token, exp), nil
}

// SignInAnonymously creates a session without credentials.
func (p *LocalProvider) SignInAnonymously(ctx context.Context) (*ProviderSession, error) {
	user, token, exp, err := p.creds.LoginAnonymous(ctx)
	if err != nil {
		return nil, err
	}
	return p.commit(user, token, exp), nil
}

// SignOut clears the current session.
func (p *LocalProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.session = nil
	subs := append([]StateChangeFunc{}, p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(EventSignedOut, nil)
	}
	return nil
}

// GetSession returns the current session, if any.
func (p *LocalProvider) GetSession(context.Context) (*ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, nil
	}
	copied := *p.session
	return &copied, nil
}

func (p *LocalProvider) commit(user *domain.User, token string, exp time.Time) *ProviderSession {
	session := &ProviderSession{User: user, Token: token, ExpiresAt: exp}

	p.mu.Lock()
	p.session = session
	subs := append([]StateChangeFunc{}, p.subscribers...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(EventSignedIn, session)
	}
	copied := *session
	return &copied
}
