package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/pkg/redis"
)

// Limiter decides whether a request is allowed under the configured rate.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// WindowLimiter is a fixed-window counter backed by redis. Fail-open: if
// redis is unreachable the request is allowed.
type WindowLimiter struct {
	client redis.RedisClient
	logger *zap.Logger
}

func NewWindowLimiter(client redis.RedisClient, logger *zap.Logger) *WindowLimiter {
	return &WindowLimiter{client: client, logger: logger}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := l.client.IncrWindow(ctx, "ratelimit:"+key, window)
	if err != nil {
		l.logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
		return true, nil
	}
	return count <= int64(limit), nil
}
