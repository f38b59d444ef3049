package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

func seedSessions(t *testing.T, store *repository.MemoryStore, now time.Time) {
	t.Helper()
	ctx := context.Background()
	sessions := []model.RefreshSession{
		{ID: "live", UserID: "u1", TokenHash: "h1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "expired", UserID: "u1", TokenHash: "h2", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
	}
	for _, session := range sessions {
		if err := store.CreateRefreshSession(ctx, session); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}
}

func TestCleanupSessions(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Now().UTC()
	seedSessions(t, store, now)

	deleted, err := CleanupSessions(context.Background(), store, now, slog.Default())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted session, got %d", deleted)
	}
	if _, err := store.GetRefreshSession(context.Background(), "h1"); err != nil {
		t.Fatalf("live session should remain: %v", err)
	}
}

func TestStartSessionCleanupJob(t *testing.T) {
	store := repository.NewMemoryStore()
	seedSessions(t, store, time.Now().UTC())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSessionCleanupJob(ctx, config.Config{
		SessionCleanupEnabled:  true,
		SessionCleanupInterval: 10 * time.Millisecond,
	}, store, slog.Default())

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := store.GetRefreshSession(context.Background(), "h2")
		if errors.Is(err, repository.ErrNotFound) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expired session was never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartSessionCleanupJobDisabled(t *testing.T) {
	store := repository.NewMemoryStore()
	seedSessions(t, store, time.Now().UTC())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSessionCleanupJob(ctx, config.Config{SessionCleanupInterval: time.Millisecond}, store, slog.Default())
	time.Sleep(20 * time.Millisecond)

	if _, err := store.GetRefreshSession(context.Background(), "h2"); err != nil {
		t.Fatalf("disabled job must not delete sessions: %v", err)
	}
}
