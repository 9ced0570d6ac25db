// Package worker runs the background jobs of the worker binary: the expiry sweep and the security event consumer.
package worker

import (
	"context"
	"log"
	"time"
)

// Cleaner deactivates expired sessions and remember tokens. *service.Manager satisfies it.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (sessions, tokens int, err error)
}

// Sweep runs one cleanup immediately and then every interval until ctx is done.
// Failures are logged and retried on the next tick.
func Sweep(ctx context.Context, cleaner Cleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sweepOnce(ctx, cleaner)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, cleaner Cleaner) {
	sessions, tokens, err := cleaner.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("worker: cleanup failed: %v", err)
		}
		return
	}
	if sessions > 0 || tokens > 0 {
		log.Printf("worker: expired %d sessions and %d remember tokens", sessions, tokens)
	}
}
