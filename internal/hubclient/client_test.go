package hubclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	hubhttp "github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/http"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

const testAPIKey = "publishable-test-key"

func newHub(t *testing.T) string {
	t.Helper()
	cfg := config.Config{
		JWTSecret:          "test-secret",
		JWTIssuer:          "test-issuer",
		APIKey:             testAPIKey,
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		DeviceOnlineWindow: time.Hour,
	}
	server := hubhttp.NewServer(cfg, repository.NewMemoryStore(), hubhttp.Options{Audit: audit.NewMemorySink()})
	app := httptest.NewServer(server.Router())
	t.Cleanup(app.Close)
	return app.URL
}

type recorder struct {
	mu     sync.Mutex
	events []AuthEvent
}

func (r *recorder) listen(event AuthEvent, _ *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuthEvent(nil), r.events...)
}

func TestSignUpRoleAndSignOut(t *testing.T) {
	client := New(config.ClientConfig{HubURL: newHub(t), HubAPIKey: testAPIKey})
	rec := &recorder{}
	sub := client.OnAuthStateChange(rec.listen)
	defer sub.Unsubscribe()

	session, err := client.SignUp(context.Background(), "tech@shop.example", "abcdefg1", Profile{FirstName: "Sam"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if session.UserID == "" || session.Email != "tech@shop.example" || session.AccessToken == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	current, err := client.GetCurrentSession(context.Background())
	if err != nil || current == nil || current.UserID != session.UserID {
		t.Fatalf("expected held session, got %+v (%v)", current, err)
	}

	role, err := client.GetUserRole(context.Background(), session.UserID)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != model.RoleStandardUser {
		t.Fatalf("expected standard_user, got %s", role)
	}

	if err := client.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	current, err = client.GetCurrentSession(context.Background())
	if err != nil || current != nil {
		t.Fatalf("expected no session after sign out, got %+v (%v)", current, err)
	}

	events := rec.snapshot()
	if len(events) != 2 || events[0] != EventSignedIn || events[1] != EventSignedOut {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestSignInErrors(t *testing.T) {
	client := New(config.ClientConfig{HubURL: newHub(t), HubAPIKey: testAPIKey})

	_, err := client.SignInWithPassword(context.Background(), "nobody@shop.example", "abcdefg1")
	if KindOf(err) != KindAuthorization || !IsCode(err, "invalid_credentials") {
		t.Fatalf("expected invalid_credentials authorization error, got %v", err)
	}

	if _, err := client.SignUp(context.Background(), "a@shop.example", "abcdefg1", Profile{}); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	_, err = client.SignUp(context.Background(), "a@shop.example", "abcdefg1", Profile{})
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	wrongKey := New(config.ClientConfig{HubURL: newHub(t), HubAPIKey: "nope"})
	_, err = wrongKey.SignInWithPassword(context.Background(), "a@shop.example", "abcdefg1")
	if !IsCode(err, "invalid_api_key") {
		t.Fatalf("expected invalid_api_key, got %v", err)
	}
}

func TestGetCurrentSessionRefreshes(t *testing.T) {
	hubURL := newHub(t)
	var skew time.Duration
	client := New(config.ClientConfig{HubURL: hubURL, HubAPIKey: testAPIKey}, WithClock(func() time.Time {
		return time.Now().Add(skew)
	}))
	rec := &recorder{}
	client.OnAuthStateChange(rec.listen)

	original, err := client.SignUp(context.Background(), "r@shop.example", "abcdefg1", Profile{})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	skew = time.Hour
	refreshed, err := client.GetCurrentSession(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed == nil || refreshed.RefreshToken == original.RefreshToken || refreshed.UserID != original.UserID {
		t.Fatalf("expected rotated session, got %+v", refreshed)
	}
	events := rec.snapshot()
	if len(events) != 2 || events[1] != EventTokenRefreshed {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	client := New(config.ClientConfig{HubURL: newHub(t), HubAPIKey: testAPIKey})
	rec := &recorder{}
	client.OnAuthStateChange(rec.listen)

	client.SetSession(&Session{AccessToken: "stale", RefreshToken: "unknown", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)})
	session, err := client.GetCurrentSession(context.Background())
	if err != nil || session != nil {
		t.Fatalf("expected signed out, got %+v (%v)", session, err)
	}
	events := rec.snapshot()
	if len(events) != 2 || events[0] != EventSignedIn || events[1] != EventSignedOut {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	client := New(config.ClientConfig{HubURL: "http://127.0.0.1:1"})
	rec := &recorder{}
	sub := client.OnAuthStateChange(rec.listen)
	client.SetSession(&Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	sub.Unsubscribe()
	sub.Unsubscribe()
	client.SetSession(nil)

	if events := rec.snapshot(); len(events) != 1 {
		t.Fatalf("expected one event before unsubscribe, got %v", events)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(config.ClientConfig{HubURL: url, Timeout: time.Second})
	_, err := client.SignInWithPassword(context.Background(), "a@shop.example", "abcdefg1")
	if err == nil || KindOf(err) != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&APIError{Status: http.StatusBadRequest, Code: "invalid_device_uid"}, KindValidation},
		{&APIError{Status: http.StatusConflict, Code: "device_uid_exists"}, KindConflict},
		{&APIError{Status: http.StatusBadRequest, Code: "23505"}, KindConflict},
		{&APIError{Status: http.StatusUnauthorized, Code: "invalid_token"}, KindAuthorization},
		{&APIError{Status: http.StatusForbidden, Code: "forbidden"}, KindAuthorization},
		{&APIError{Status: http.StatusNotFound, Code: "device_not_found"}, KindNotFound},
		{&APIError{Status: http.StatusInternalServerError, Code: "server_error"}, KindTransport},
		{fmt.Errorf("wrapped: %w", &APIError{Status: http.StatusConflict}), KindConflict},
		{&ValidationError{Code: "invalid_email"}, KindValidation},
		{ErrNoSession, KindAuthorization},
		{context.DeadlineExceeded, KindTransport},
		{errors.New("boom"), KindTransport},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
