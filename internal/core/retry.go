// AngelaMos | 2026
// retry.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	connectInitialWait = 250 * time.Millisecond
	connectMaxWait     = 5 * time.Second
	connectBudget      = 30 * time.Second
	connectAttemptTime = 5 * time.Second
)

// waitFor pings a backing service until it answers or the connect budget
// runs out. Compose and Kubernetes both start the API before Postgres and
// Redis are accepting connections.
func waitFor(
	ctx context.Context,
	name string,
	ping func(context.Context) error,
) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = connectInitialWait
	b.MaxInterval = connectMaxWait
	b.MaxElapsedTime = connectBudget

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, connectAttemptTime)
		defer cancel()
		return ping(attemptCtx)
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("backing service not ready, retrying",
			"service", name,
			"retry_in", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("%s unreachable: %w", name, err)
	}
	return nil
}
