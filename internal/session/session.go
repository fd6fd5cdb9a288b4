package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trade_console/internal/xts"

	"go.uber.org/zap"
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrMissingCredentials = errors.New("user name and password are required")
)

// Session is the signed-in user together with the tenant defaults used to
// stamp create and update requests.
type Session struct {
	User          xts.ObjectID      `json:"user"`
	Token         string            `json:"token"`
	DefaultValues xts.DefaultValues `json:"defaultValues"`
	SignedInAt    time.Time         `json:"signedInAt"`
}

type Credentials struct {
	UserName string
	Password string
}

// Provider gives read access to the current session. Components depend on it
// instead of reaching for process-wide state.
type Provider interface {
	Current() (Session, bool)
}

type Authenticator interface {
	SignIn(ctx context.Context, userName, password string) (xts.SignInResult, error)
	SignOut(ctx context.Context) error
	SetSessionToken(token string)
}

type Store interface {
	LoadSession() (*Session, error)
	SaveSession(s Session) error
	ClearSession() error
	LoadCredentials() (*Credentials, error)
	SaveCredentials(c Credentials) error
	ClearCredentials() error
}

type Manager struct {
	auth   Authenticator
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

func NewManager(auth Authenticator, store Store, logger *zap.Logger) *Manager {
	return &Manager{
		auth:   auth,
		store:  store,
		logger: logger.Named("session"),
		now:    time.Now,
	}
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Require returns the current session or ErrNotSignedIn.
func (m *Manager) Require() (Session, error) {
	s, ok := m.Current()
	if !ok {
		return Session{}, ErrNotSignedIn
	}
	return s, nil
}

// Restore loads a persisted session, if any, and re-attaches its token.
func (m *Manager) Restore() error {
	stored, err := m.store.LoadSession()
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if stored == nil {
		return nil
	}
	m.set(stored)
	m.auth.SetSessionToken(stored.Token)
	m.logger.Info("session restored", zap.String("user", stored.User.Presentation))
	return nil
}

func (m *Manager) SignIn(ctx context.Context, creds Credentials, remember bool) (Session, error) {
	if strings.TrimSpace(creds.UserName) == "" || creds.Password == "" {
		return Session{}, ErrMissingCredentials
	}

	result, err := m.auth.SignIn(ctx, creds.UserName, creds.Password)
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}

	s := Session{
		User:          result.User,
		Token:         result.SessionID,
		DefaultValues: result.DefaultValues,
		SignedInAt:    m.now(),
	}
	if err := m.store.SaveSession(s); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	if remember {
		if err := m.store.SaveCredentials(creds); err != nil {
			m.logger.Warn("remember credentials failed", zap.Error(err))
		}
	} else if err := m.store.ClearCredentials(); err != nil {
		m.logger.Warn("clear credentials failed", zap.Error(err))
	}

	m.set(&s)
	m.logger.Info("signed in", zap.String("user", s.User.Presentation))
	return s, nil
}

// SignOut always drops the local session, even when the remote call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	remoteErr := m.auth.SignOut(ctx)
	m.set(nil)
	if err := m.store.ClearSession(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}
	return nil
}

func (m *Manager) UpdateDefaults(update func(*xts.DefaultValues)) (Session, error) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return Session{}, ErrNotSignedIn
	}
	next := *m.current
	update(&next.DefaultValues)
	m.mu.Unlock()

	if err := m.store.SaveSession(next); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	m.set(&next)
	return next, nil
}

func (m *Manager) RememberedCredentials() (*Credentials, error) {
	return m.store.LoadCredentials()
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.current = nil
		return
	}
	copied := *s
	m.current = &copied
}
