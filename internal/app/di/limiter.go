package di

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Nachitrix/Book-reader/internal/platform/config"
	"github.com/Nachitrix/Book-reader/internal/shared/ratelimiter"
)

// NewRateLimiter creates the limiter for the auth endpoints.
// If Redis is available, it returns a Redis-backed implementation shared by all replicas.
// Otherwise, it falls back to an in-process limiter.
func NewRateLimiter(rdb *redis.Client, cfg config.RateLimit) ratelimiter.Limiter {
	if rdb != nil {
		return ratelimiter.NewRedisLimiter(rdb, "ratelimit", cfg.Requests, cfg.Window)
	}
	slog.Info("using in-process rate limiter")
	return ratelimiter.NewLocalLimiter(cfg.Requests, cfg.Window)
}
