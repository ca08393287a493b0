package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/langbot/internal/logger"
)

func TestMemory_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewMemory(2, time.Hour)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, 1)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, 2)
	assert.True(t, ok, "users are limited independently")

	now = now.Add(time.Hour)
	ok, _ = l.Allow(ctx, 1)
	assert.True(t, ok, "window resets")
}

func TestRedis_NilClientAllows(t *testing.T) {
	l := NewRedisWithClient(nil, 1, time.Minute, logger.Nop())
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, l.Close())
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis("not a url", 1, time.Minute, logger.Nop())
	assert.Error(t, err)
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	l := NewRedisWithClient(client, 2, 2*time.Second, logger.Nop())
	defer l.Close()

	ctx := context.Background()
	userID := time.Now().UnixNano()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}
