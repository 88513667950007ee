package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/slotpool/pool"
)

func soakConfig(workers, capacity int, policy pool.FreePolicy) Config {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.Duration = 150 * time.Millisecond
	cfg.MetricsAddr = ""
	cfg.Pool.Capacity = capacity
	cfg.Pool.FreePolicy = policy.String()
	return cfg
}

func TestRun_CompareAndSwapLosesNothing(t *testing.T) {
	for _, s := range pool.Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			cfg := soakConfig(8, 6, pool.FreeCompareAndSwap)
			cfg.Pool.Strategy = s.String()

			res, err := Run(context.Background(), cfg, zerolog.Nop())
			require.NoError(t, err)

			assert.Positive(t, res.Allocations)
			assert.Zero(t, res.Lost, "built=%d pooled=%d dropped=%d", res.Built, res.Pooled, res.Dropped)
			assert.LessOrEqual(t, res.Pooled, cfg.Pool.Capacity)
			assert.Zero(t, res.FactoryErrors)
			assert.Zero(t, res.Shared, "an object reached two workers at once")
		})
	}
}

func TestRun_UnsynchronizedWarnsAndNeverGains(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	cfg := soakConfig(4, 16, pool.FreeUnsynchronized)
	res, err := Run(context.Background(), cfg, logger)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "unsynchronized free policy")
	assert.GreaterOrEqual(t, res.Lost, int64(0))
	assert.Zero(t, res.Shared)
}

func TestRun_ObjectBudget(t *testing.T) {
	cfg := soakConfig(4, 8, pool.FreeCompareAndSwap)
	cfg.MaxObjects = 1
	cfg.HoldTime = 5 * time.Millisecond

	res, err := Run(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Built)
	assert.Positive(t, res.FactoryErrors)
	assert.Zero(t, res.Lost)
}

func TestRun_RateLimited(t *testing.T) {
	cfg := soakConfig(1, 4, pool.FreeCompareAndSwap)
	cfg.RateLimit = 100
	cfg.Duration = 200 * time.Millisecond

	res, err := Run(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	// One token of burst plus 100/s over 200ms, with slack for scheduling.
	assert.LessOrEqual(t, res.Allocations, uint64(30))
	assert.Positive(t, res.Allocations)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, soakConfig(4, 8, pool.FreeCompareAndSwap), zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, res.Allocations)
	assert.Zero(t, res.Built)
}

func TestRun_InvalidPoolConfig(t *testing.T) {
	cfg := soakConfig(1, 0, pool.FreeCompareAndSwap)
	_, err := Run(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, pool.ErrInvalidCapacity)
}

func TestPayload_AcquireIsExclusive(t *testing.T) {
	obj := &payload{}
	require.True(t, obj.acquire(0))
	assert.False(t, obj.acquire(3), "held by worker 0")
	assert.False(t, obj.acquire(0), "no re-entry either")

	obj.release()
	assert.True(t, obj.acquire(3))
	assert.Equal(t, int64(4), obj.holder.Load())
}
