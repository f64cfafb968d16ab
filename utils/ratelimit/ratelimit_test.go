package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingClient implements the redis client surface with an in-memory
// counter and a switchable failure mode.
type countingClient struct {
	counts map[string]int64
	err    error
}

func newCountingClient() *countingClient {
	return &countingClient{counts: map[string]int64{}}
}

func (c *countingClient) Close() error                   { return nil }
func (c *countingClient) GetClient() *redis.Client       { return nil }
func (c *countingClient) Ping(context.Context) error     { return c.err }
func (c *countingClient) SetUserOnline(context.Context, string, time.Duration) error {
	return c.err
}
func (c *countingClient) IsUserOnline(context.Context, string) (bool, error) { return false, c.err }
func (c *countingClient) RemoveUserOnline(context.Context, string) error     { return c.err }

func (c *countingClient) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestWindowLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewWindowLimiter(newCountingClient(), zap.NewNop())
	ctx := context.Background()

	for i := range 5 {
		allowed, err := limiter.Allow(ctx, "alice", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "alice", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestWindowLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewWindowLimiter(newCountingClient(), zap.NewNop())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "alice", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "alice", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different caller is unaffected.
	allowed, err = limiter.Allow(ctx, "bob", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestWindowLimiterFailsOpen(t *testing.T) {
	client := newCountingClient()
	client.err = errors.New("connection refused")
	limiter := NewWindowLimiter(client, zap.NewNop())

	allowed, err := limiter.Allow(context.Background(), "alice", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
