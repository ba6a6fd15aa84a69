package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstDoesNotWait(t *testing.T) {
	t.Parallel()

	rl := NewPerSecond(0.01, 5)
	start := time.Now()
	for range 5 {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiter_WaitsWhenExhausted(t *testing.T) {
	t.Parallel()

	rl := NewPerSecond(20, 1) // 50ms ごとに1回
	require.NoError(t, rl.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRateLimiter_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	rl := NewPerSecond(1.0/3600, 1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	t.Parallel()

	for _, rl := range []*RateLimiter{NewPerSecond(0, 0), NewPerSecond(-1, 3)} {
		for range 100 {
			require.NoError(t, rl.Wait(context.Background()))
		}
	}
}
