package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper purges expired state and reports how much was removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunJanitor sweeps immediately, then every interval until ctx is cancelled.
func RunJanitor(ctx context.Context, s Sweeper, interval time.Duration) {
	slog.Info("session janitor started", "interval", interval)

	sweepOnce(ctx, s)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			sweepOnce(ctx, s)
		}
	}
}

func sweepOnce(ctx context.Context, s Sweeper) {
	start := time.Now()
	removed, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("expired import sessions purged",
			"sessions_purged", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
