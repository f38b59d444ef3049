package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

// StartSessionCleanupJob periodically deletes expired and revoked refresh
// sessions. It returns immediately; the job stops when ctx is done.
func StartSessionCleanupJob(ctx context.Context, cfg config.Config, store repository.Repository, logger *slog.Logger) {
	if !cfg.SessionCleanupEnabled {
		return
	}
	if store == nil {
		logger.Warn("session cleanup job disabled: store not configured")
		return
	}
	interval := cfg.SessionCleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.SessionCleanupTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				_, _ = CleanupSessions(tickCtx, store, time.Now().UTC(), logger)
				cancel()
			}
		}
	}()
}

func CleanupSessions(ctx context.Context, store repository.Repository, now time.Time, logger *slog.Logger) (int64, error) {
	deleted, err := store.DeleteStaleRefreshSessions(ctx, now)
	if err != nil {
		logger.Error("session cleanup job error", "error", err)
		return 0, err
	}
	if deleted > 0 {
		logger.Info("session cleanup job removed sessions", "count", deleted)
	}
	return deleted, nil
}
