package app

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultPollInterval = time.Minute
	// maxBackoff caps the delay between polls while the backend is failing.
	maxBackoff = 5 * time.Minute
)

// StartPoller launches a background goroutine that refreshes the task list
// at a fixed cadence, backing off while polls fail. It returns immediately.
func StartPoller(ctx context.Context, a *App, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		failures := 0
		for {
			if err := a.RefreshTasks(ctx); err != nil {
				failures++
				a.Log.Warn("task poll failed", slog.String("error", err.Error()), slog.Int("failures", failures))
			} else {
				failures = 0
			}
			wait := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				wait.Stop()
				return
			case <-wait.C:
			}
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
