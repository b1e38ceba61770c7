// Package session holds the signed-in user and bearer token, persisted
// across restarts.
package session

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/scope"
	"github.com/nixlim/mixwatch/internal/storage"
)

// Key is the storage key of the persisted session.
const Key = "session"

const opTimeout = 3 * time.Second

// Session is a signed-in user and their bearer token.
type Session struct {
	User  api.User `json:"user"`
	Token string   `json:"token"`
}

// Role returns the display role of the signed-in user.
func (s *Session) Role() scope.Role {
	return scope.RoleFor(s.User.Rights)
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (api.LoginResponse, error)
}

// Manager owns the current session. It is safe for concurrent use.
type Manager struct {
	kv   storage.KV
	auth Authenticator
	now  func() time.Time

	mu      sync.RWMutex
	current *Session
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager persisting through kv.
func NewManager(kv storage.KV, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{kv: kv, auth: auth, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAuthenticator sets the backend used by Login. The api client needs the
// manager as its token source, so the two are wired after construction.
func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

// Login authenticates against the backend and persists the new session.
// Validation and authentication errors are returned unchanged for display.
func (m *Manager) Login(ctx context.Context, login, password string) (*Session, error) {
	if strings.TrimSpace(login) == "" {
		return nil, api.Validationf("login is required")
	}
	if password == "" {
		return nil, api.Validationf("password is required")
	}

	m.mu.RLock()
	auth := m.auth
	m.mu.RUnlock()

	resp, err := auth.Login(ctx, login, password)
	if err != nil {
		return nil, err
	}

	s := &Session{User: resp.User, Token: resp.Token}
	m.mu.Lock()
	m.current = s
	m.loaded = true
	m.mu.Unlock()

	m.persist(s)
	return s, nil
}

// Current returns the signed-in session, loading it from storage on first
// use. It returns nil when nobody is signed in, the stored session is
// corrupt, or its token has expired.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		m.current = m.read()
		m.loaded = true
	}
	if m.current != nil && tokenExpired(m.current.Token, m.now()) {
		log.Printf("WARNING: session token for user %s has expired", m.current.User.ID)
		m.current = nil
		m.remove()
	}
	return m.current
}

// Token returns the current bearer token, or "" when signed out.
func (m *Manager) Token() string {
	if s := m.Current(); s != nil {
		return s.Token
	}
	return ""
}

// UpdateUser replaces the cached profile, keeping the token.
func (m *Manager) UpdateUser(u api.User) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	s := &Session{User: u, Token: m.current.Token}
	m.current = s
	m.mu.Unlock()
	m.persist(s)
}

// Logout forgets the session in memory and in storage.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.loaded = true
	m.remove()
}

func (m *Manager) read() *Session {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, ok, err := m.kv.Get(ctx, Key)
	if err != nil {
		log.Printf("WARNING: loading session: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		log.Printf("WARNING: discarding corrupt stored session")
		return nil
	}
	return &s
}

func (m *Manager) persist(s *Session) {
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("WARNING: encoding session: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := m.kv.Set(ctx, Key, data); err != nil {
		log.Printf("WARNING: saving session: %v", err)
	}
}

// remove deletes the stored session. Caller must hold mu.
func (m *Manager) remove() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := m.kv.Delete(ctx, Key); err != nil {
		log.Printf("WARNING: removing session: %v", err)
	}
}

// tokenExpired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens and JWTs without exp never expire client-side; the backend
// remains the authority.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
