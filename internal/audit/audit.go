package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventAuthentication EventType = "authentication"
	EventDataAccess     EventType = "data_access"
	EventRoleChange     EventType = "role_change"
)

// Event is a security-relevant action taken by or on behalf of a user.
type Event struct {
	Type       EventType
	Action     string
	UserID     string
	Email      string
	TargetID   string
	RemoteAddr string
	Details    map[string]string
	At         time.Time
}

type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SlogSink writes events as structured log records.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "audit")}
}

func (s *SlogSink) Record(ctx context.Context, event Event) error {
	attrs := []any{
		"type", string(event.Type),
		"action", event.Action,
		"at", event.At,
	}
	if event.UserID != "" {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.Email != "" {
		attrs = append(attrs, "email", event.Email)
	}
	if event.TargetID != "" {
		attrs = append(attrs, "target_id", event.TargetID)
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, "remote_addr", event.RemoteAddr)
	}
	for key, value := range event.Details {
		attrs = append(attrs, key, value)
	}
	s.logger.InfoContext(ctx, "security event", attrs...)
	return nil
}

// MemorySink keeps events in memory (tests and local development).
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
