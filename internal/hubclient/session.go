package hubclient

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

// Session is the signed-in identity and its tokens.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	ExpiresAt    time.Time
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener is called after every session change. session is nil when
// the user is signed out. Listeners run on the goroutine that caused the
// change and must not block.
type AuthListener func(event AuthEvent, session *Session)

// Subscription releases an auth listener.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
}

func NewSubscription(unsubscribe func()) *Subscription {
	return &Subscription{unsubscribe: unsubscribe}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// Profile is the optional profile data sent on sign-up.
type Profile struct {
	FirstName string
	LastName  string
}

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (p sessionPayload) session() *Session {
	return &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		UserID:       p.User.ID,
		Email:        p.User.Email,
		ExpiresAt:    time.Unix(p.ExpiresAt, 0).UTC(),
	}
}

func (c *Client) OnAuthStateChange(listener AuthListener) *Subscription {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	c.mu.Unlock()

	return NewSubscription(func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	})
}

func (c *Client) setSession(event AuthEvent, session *Session) {
	c.mu.Lock()
	c.session = session
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	listeners := make([]AuthListener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	var snapshot *Session
	if session != nil {
		copied := *session
		snapshot = &copied
	}
	for _, listener := range listeners {
		listener(event, snapshot)
	}
}

// SetSession restores a previously persisted session and notifies listeners.
func (c *Client) SetSession(session *Session) {
	if session == nil {
		c.setSession(EventSignedOut, nil)
		return
	}
	copied := *session
	c.setSession(EventSignedIn, &copied)
}

func (c *Client) SignUp(ctx context.Context, email, password string, profile Profile) (*Session, error) {
	var payload sessionPayload
	err := c.send(ctx, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":      strings.TrimSpace(email),
		"password":   password,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
	}, &payload, nil)
	if err != nil {
		return nil, err
	}
	session := payload.session()
	c.setSession(EventSignedIn, session)
	return session, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var payload sessionPayload
	err := c.send(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &payload, nil)
	if err != nil {
		return nil, err
	}
	session := payload.session()
	c.setSession(EventSignedIn, session)
	return session, nil
}

// SignOut revokes the refresh token on the hub and clears the local session.
// The local session is cleared even when the hub call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}

	err := c.send(ctx, http.MethodPost, "/auth/logout", session.AccessToken, map[string]string{
		"refresh_token": session.RefreshToken,
	}, nil, nil)
	c.setSession(EventSignedOut, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return err
}

// GetCurrentSession returns the held session, refreshing it first when the
// access token is about to expire. It returns nil without error when nobody
// is signed in or the refresh token was rejected.
func (c *Client) GetCurrentSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, nil
	}
	if c.now().Add(refreshLeeway).Before(session.ExpiresAt) {
		copied := *session
		return &copied, nil
	}

	result, err, _ := c.refresh.Do(session.RefreshToken, func() (interface{}, error) {
		return c.refreshSession(ctx, session.RefreshToken)
	})
	if err != nil {
		return nil, err
	}
	refreshed, _ := result.(*Session)
	if refreshed == nil {
		return nil, nil
	}
	copied := *refreshed
	return &copied, nil
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var payload sessionPayload
	err := c.send(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &payload, nil)
	if err != nil {
		if KindOf(err) == KindAuthorization {
			c.logger.Info("hub session expired", "error", err)
			c.setSession(EventSignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	session := payload.session()
	c.setSession(EventTokenRefreshed, session)
	return session, nil
}

// GetUserRole asks the hub for the role of userID.
func (c *Client) GetUserRole(ctx context.Context, userID string) (model.Role, error) {
	var resp struct {
		Role string `json:"role"`
	}
	if err := c.Do(ctx, http.MethodPost, "/rpc/get_user_role", map[string]string{"user_id": userID}, &resp); err != nil {
		return "", err
	}
	role, ok := model.ParseRole(resp.Role)
	if !ok {
		return "", &APIError{Status: http.StatusOK, Code: "invalid_role", Message: resp.Role}
	}
	return role, nil
}
