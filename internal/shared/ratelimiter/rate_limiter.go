// Package ratelimiter はキー単位の固定ウィンドウ/トークンバケット方式のレート制限を提供します。
package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter は操作の頻度をキー（クライアントIP等）ごとに制限するインターフェースです。
type Limiter interface {
	// Allow はkeyに対する操作を今許可してよいかを返します。
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter は複数インスタンス間で共有される固定ウィンドウのレートリミッターです。
// ウィンドウ内の最初のリクエストでカウンターにTTLを設定します。
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter はwindowあたりlimit回まで許可するRedisLimiterを生成します。
func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, k)
}

// Allow はカウンターをINCRし、上限を超えていればfalseを返します。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limiter expire: %w", err)
		}
	}
	return n <= l.limit, nil
}

// maxLocalKeys を超えたらLocalLimiterはキーを全て破棄します。
const maxLocalKeys = 10_000

// LocalLimiter はプロセス内でキーごとのトークンバケットを保持するレートリミッターです。
// Redisが利用できない場合のフォールバックとして使います。
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

var _ Limiter = (*LocalLimiter)(nil)

// NewLocalLimiter はwindowあたりlimit回（バースト含む）を許可するLocalLimiterを生成します。
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLocalKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow(), nil
}
