// Package ratelimit caps how many updates a user may send per window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
)

// Limiter decides whether a user may proceed
type Limiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

// Redis is a fixed-window limiter using INCR/EXPIRE.
// key format: rl:<window_seconds>:<user_id>
type Redis struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	log         *logger.Logger
}

// NewRedis connects to redisURL and pings it
func NewRedis(redisURL string, maxRequests int, window time.Duration, log *logger.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisWithClient(client, maxRequests, window, log), nil
}

// NewRedisWithClient wraps an existing client. A nil client allows everything.
func NewRedisWithClient(client *redis.Client, maxRequests int, window time.Duration, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{client: client, maxRequests: maxRequests, window: window, log: log}
}

// Allow implements Limiter. Redis errors fail open.
func (l *Redis) Allow(ctx context.Context, userID int64) (bool, error) {
	if l.client == nil {
		return true, nil
	}

	key := "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + strconv.FormatInt(userID, 10)
	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if val == 1 {
		// first increment, set expiry
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.Warn("Failed to set rate limit expiry", "key", key, "error", err)
		}
	}

	if val > int64(l.maxRequests) {
		metrics.RateLimited.Inc()
		return false, nil
	}
	return true, nil
}

// Close releases the redis connection
func (l *Redis) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

type clientInfo struct {
	start time.Time
	count int
}

// Memory is the in-process fallback used when redis is disabled
type Memory struct {
	mu          sync.Mutex
	clients     map[int64]*clientInfo
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewMemory creates an in-process fixed-window limiter
func NewMemory(maxRequests int, window time.Duration) *Memory {
	return &Memory{
		clients:     make(map[int64]*clientInfo),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow implements Limiter
func (l *Memory) Allow(_ context.Context, userID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[userID]
	if !ok || now.Sub(ci.start) >= l.window {
		l.clients[userID] = &clientInfo{start: now, count: 1}
		return true, nil
	}

	ci.count++
	if ci.count > l.maxRequests {
		metrics.RateLimited.Inc()
		return false, nil
	}
	return true, nil
}
