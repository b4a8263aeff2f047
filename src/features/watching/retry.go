package watching

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/contre95/pew/src/reload"
)

const maxSpawnBackoff = 10 * time.Second

// retrySpawn calls start until it succeeds, fails with something other than a
// SpawnError, or the retries are used up. The wait doubles after every attempt.
func retrySpawn(ctx context.Context, logger *slog.Logger, retries int, backoff time.Duration, start func(context.Context) error) error {
	err := start(ctx)
	for attempt := 1; err != nil && attempt <= retries; attempt++ {
		var spawnErr *reload.SpawnError
		if !errors.As(err, &spawnErr) {
			return err
		}

		logger.Warn("Could not start process, retrying", "attempt", attempt, "retries", retries, "wait", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxSpawnBackoff {
			backoff = maxSpawnBackoff
		}
		err = start(ctx)
	}
	return err
}
