// AngelaMos | 2026
// retry_test.go

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForRetriesUntilReady(t *testing.T) {
	calls := 0
	err := waitFor(context.Background(), "database", func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline, "each attempt is bounded")
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitForStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitFor(ctx, "redis", func(context.Context) error {
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "redis unreachable")
}
