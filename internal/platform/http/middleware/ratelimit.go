// Package middleware はアプリ横断のginミドルウェアを提供します。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nachitrix/Book-reader/internal/api"
)

// Limiter はレート制限の判定を行うインターフェースです。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit はルートとクライアントIPの組み合わせごとにリクエストを制限します。
// リミッターの障害時はリクエストを通し、警告ログのみ出力します。
// onLimitedがnilでなければ、拒否したリクエストのルートを渡して呼び出します。
func RateLimit(l Limiter, onLimited func(route string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		ok, err := l.Allow(c.Request.Context(), route+"|"+c.ClientIP())
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err, "remote_addr", c.ClientIP())
			c.Next()
			return
		}
		if !ok {
			if onLimited != nil {
				onLimited(route)
			}
			slog.Warn("rate limit exceeded", "route", route, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Error:   "TOO_MANY_REQUESTS",
				Message: "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
