// Package router はHTTPルーティングを組み立てます。
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "github.com/Nachitrix/Book-reader/internal/feature/auth/transport/handler"
	bookhandler "github.com/Nachitrix/Book-reader/internal/feature/books/transport/handler"
	"github.com/Nachitrix/Book-reader/internal/platform/http/handler"
	"github.com/Nachitrix/Book-reader/internal/platform/http/middleware"
	jwtmw "github.com/Nachitrix/Book-reader/internal/platform/jwt"
	"github.com/Nachitrix/Book-reader/internal/platform/metrics"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// Deps はルーターが必要とする依存関係です。
type Deps struct {
	Auth  *authhandler.AuthHandler
	Books *bookhandler.BookHandler

	Tokens     jwtmw.TokenVerifier
	Subjects   jwtmw.SubjectLoader
	CookieName string

	// Limiter はログイン・登録エンドポイントに適用します。nilの場合は制限しません。
	Limiter middleware.Limiter
	// Metrics がnilの場合、計測と/metricsは無効です。
	Metrics *metrics.Metrics
	DB      handler.Pinger

	CORSOrigins []string
}

func newCORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	// ブラウザからCookie付きで呼び出すため、許可するオリジンを明示する
	if len(d.CORSOrigins) > 0 {
		r.Use(newCORS(d.CORSOrigins))
	}

	// 導通確認用
	r.GET("/healthz", handler.Health(d.DB))
	r.HEAD("/healthz", handler.Health(d.DB))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	// 認証不要
	// ログイン・登録系はクライアントごとにレート制限する
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if d.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		var onLimited func(string)
		if d.Metrics != nil {
			onLimited = d.Metrics.RateLimited
		}
		return []gin.HandlerFunc{middleware.RateLimit(d.Limiter, onLimited), h}
	}
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", limited(d.Auth.Register)...)
		authGroup.POST("/login", limited(d.Auth.Login)...)
		authGroup.POST("/google", limited(d.Auth.ExternalAuth)...)
		authGroup.GET("/logout", d.Auth.Logout)
	}

	// 認証必須のルート
	// → Authorizationヘッダー（Bearer）またはCookieにJWTが必要になる
	authRequired := jwtmw.AuthRequired(d.Tokens, d.Subjects, d.CookieName)
	private := v1.Group("/")
	private.Use(authRequired)
	{
		private.GET("/auth/me", d.Auth.Me)
		private.PUT("/auth/password", d.Auth.ChangePassword)

		private.POST("/books", d.Books.Create)
		private.GET("/books", d.Books.List)
		private.GET("/books/:id", d.Books.Get)
		private.PUT("/books/:id", d.Books.Update)
		private.DELETE("/books/:id", d.Books.Delete)
	}

	admin := v1.Group("/admin")
	admin.Use(authRequired, jwtmw.RequireRole(authz.RoleAdmin))
	{
		admin.GET("/books", d.Books.ListAll)
	}

	return r
}
