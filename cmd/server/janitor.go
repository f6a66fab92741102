package main

import (
	"context"
	"time"

	"expense-tracker/internal/auth"
	applog "expense-tracker/internal/log"
)

// runJanitor deletes expired sessions every interval until ctx is done.
func runJanitor(ctx context.Context, sessions auth.SessionStore, interval time.Duration, logger *applog.Logger) {
	logger = logger.WithComponent(applog.ComponentJanitor)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanExpiredSessions(ctx)
			if err != nil {
				logger.Error("Failed to clean expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired sessions removed", "count", n)
			}
		}
	}
}
