// Package session keeps the signed-in identity and its role current for the
// rest of the client.
//
// A Manager holds exactly one auth listener. Session changes are applied
// synchronously inside the notification; the role for a new session is then
// resolved on a separate goroutine so the remote call never runs inside the
// auth service's callback. Role results are applied only while the session
// they were requested for is still current.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/hubclient"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/validation"
)

// AuthService is the remote identity provider.
type AuthService interface {
	GetCurrentSession(ctx context.Context) (*hubclient.Session, error)
	SignUp(ctx context.Context, email, password string, profile hubclient.Profile) (*hubclient.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*hubclient.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(listener hubclient.AuthListener) *hubclient.Subscription
}

// RoleResolver answers the role of an identity.
type RoleResolver interface {
	GetUserRole(ctx context.Context, userID string) (model.Role, error)
}

// DefaultRole is used whenever the role cannot be resolved.
const DefaultRole = model.RoleStandardUser

const defaultRoleTimeout = 10 * time.Second

// State is a consistent snapshot of the manager.
type State struct {
	Session *hubclient.Session
	Role    *model.Role
	Ready   bool
}

type Manager struct {
	auth        AuthService
	roles       RoleResolver
	logger      *slog.Logger
	roleTimeout time.Duration

	mu         sync.RWMutex
	session    *hubclient.Session
	role       *model.Role
	ready      bool
	generation uint64
	closed     bool

	sub    *hubclient.Subscription
	tasks  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager registers the manager's auth listener. Call Close to release it.
func NewManager(auth AuthService, roles RoleResolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		auth:        auth,
		roles:       roles,
		logger:      logger.With("component", "session"),
		roleTimeout: defaultRoleTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.sub = auth.OnAuthStateChange(m.handleAuthChange)
	return m
}

// Initialize resolves the current session once. It never fails: a session
// fetch error leaves the user signed out and a role fetch error falls back to
// DefaultRole. Ready is true when it returns.
func (m *Manager) Initialize(ctx context.Context) {
	current, err := m.auth.GetCurrentSession(ctx)
	if err != nil {
		m.logger.Warn("session fetch failed", "error", err)
		current = nil
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.session = current
	m.role = nil
	m.mu.Unlock()

	if current != nil {
		role := m.fetchRole(ctx, current.UserID)
		m.applyRole(gen, role)
	}

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
}

func (m *Manager) handleAuthChange(event hubclient.AuthEvent, current *hubclient.Session) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.session = current
	if current == nil {
		m.role = nil
	}
	m.ready = true
	if current != nil {
		m.tasks.Add(1)
	}
	m.mu.Unlock()

	m.logger.Debug("auth state changed", "event", event, "signed_in", current != nil)
	if current == nil {
		return
	}
	userID := current.UserID
	go func() {
		defer m.tasks.Done()
		role := m.fetchRole(m.ctx, userID)
		m.applyRole(gen, role)
	}()
}

func (m *Manager) fetchRole(ctx context.Context, userID string) model.Role {
	ctx, cancel := context.WithTimeout(ctx, m.roleTimeout)
	defer cancel()
	role, err := m.roles.GetUserRole(ctx, userID)
	if err != nil {
		m.logger.Warn("role fetch failed, using default role", "user_id", userID, "error", err)
		return DefaultRole
	}
	return role
}

func (m *Manager) applyRole(gen uint64, role model.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.session == nil {
		return
	}
	m.role = &role
}

// RefreshRole re-resolves the role of the current identity.
func (m *Manager) RefreshRole(ctx context.Context) (model.Role, bool) {
	m.mu.RLock()
	gen := m.generation
	current := m.session
	m.mu.RUnlock()
	if current == nil {
		return "", false
	}
	role := m.fetchRole(ctx, current.UserID)
	m.applyRole(gen, role)
	return m.Role()
}

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *hubclient.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.session)
}

// Role returns the resolved role. ok is false while signed out or while the
// role for a new session is still being resolved.
func (m *Manager) Role() (model.Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.role == nil {
		return "", false
	}
	return *m.role, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := State{Session: copySession(m.session), Ready: m.ready}
	if m.role != nil {
		role := *m.role
		state.Role = &role
	}
	return state
}

// IsStaff reports whether the current role may open the admin views.
func (m *Manager) IsStaff() bool {
	role, ok := m.Role()
	return ok && role.CanViewAdminData()
}

func (m *Manager) SignUp(ctx context.Context, email, password string, profile hubclient.Profile) (*hubclient.Session, error) {
	clean, err := validation.Email(email)
	if err != nil {
		return nil, &hubclient.ValidationError{Code: err.Error()}
	}
	if err := validation.SignupPassword(password); err != nil {
		return nil, &hubclient.ValidationError{Code: err.Error()}
	}
	profile.FirstName = validation.SanitizeText(profile.FirstName)
	profile.LastName = validation.SanitizeText(profile.LastName)
	return m.auth.SignUp(ctx, clean, password, profile)
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*hubclient.Session, error) {
	clean, err := validation.Email(email)
	if err != nil {
		return nil, &hubclient.ValidationError{Code: err.Error()}
	}
	if err := validation.SigninPassword(password); err != nil {
		return nil, &hubclient.ValidationError{Code: err.Error()}
	}
	return m.auth.SignInWithPassword(ctx, clean, password)
}

func (m *Manager) SignOut(ctx context.Context) error {
	return m.auth.SignOut(ctx)
}

// Wait blocks until every pending role fetch has finished.
func (m *Manager) Wait() {
	m.tasks.Wait()
}

// Close releases the auth listener and waits for pending role fetches.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.sub.Unsubscribe()
	m.cancel()
	m.tasks.Wait()
}

func copySession(s *hubclient.Session) *hubclient.Session {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}
