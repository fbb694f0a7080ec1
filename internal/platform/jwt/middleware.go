package jwtmw

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nachitrix/Book-reader/internal/api"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// DefaultCookieName はトークンを運ぶCookieの既定名です。
const DefaultCookieName = "token"

// ErrUnauthenticated is the only error the guard ever reports to the client.
var ErrUnauthenticated = apperr.E(apperr.ErrAuthentication, "UNAUTHORIZED", "Not authorized to access this route")

// Subject はトークンの持ち主として解決されたユーザーの情報です。
type Subject struct {
	UserID            uint
	Role              authz.Role
	PasswordChangedAt *time.Time
}

// SubjectLoader resolves a user id to a Subject.
// It must return an error matching apperr.ErrNotFound when the user does not exist.
type SubjectLoader func(ctx context.Context, userID uint) (*Subject, error)

// TokenVerifier はトークン検証のインターフェースです。
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// Stale reports whether a token issued at issuedAt predates the last password change.
// Timestamps are compared at second resolution and equality counts as stale.
func Stale(issuedAt time.Time, passwordChangedAt *time.Time) bool {
	if passwordChangedAt == nil || passwordChangedAt.IsZero() {
		return false
	}
	return !issuedAt.After(passwordChangedAt.Truncate(time.Second))
}

// ExtractToken はAuthorizationヘッダー（Bearer）を優先し、なければCookieからトークンを取り出します。
func ExtractToken(c *gin.Context, cookieName string) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); tok != "" {
			return tok
		}
	}
	if cookieName == "" {
		return ""
	}
	if tok, err := c.Cookie(cookieName); err == nil {
		return tok
	}
	return ""
}

// AuthRequired returns a Gin middleware that resolves the caller from a bearer token
// and restricts access to authenticated users only.
// 成功時はauthz.Identityをリクエストのcontext.Contextに付与します。
func AuthRequired(tokens TokenVerifier, load SubjectLoader, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ExtractToken(c, cookieName)
		if tokenStr == "" {
			api.WriteError(c, ErrUnauthenticated)
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			slog.Debug("token verification failed", "error", err, "remote_addr", c.ClientIP())
			api.WriteError(c, ErrUnauthenticated)
			return
		}

		ctx := c.Request.Context()
		subject, err := load(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				slog.Info("token subject not found", "user_id", claims.UserID, "remote_addr", c.ClientIP())
				api.WriteError(c, ErrUnauthenticated)
				return
			}
			api.WriteError(c, err)
			return
		}

		if Stale(claims.IssuedAt, subject.PasswordChangedAt) {
			slog.Info("stale token rejected", "user_id", subject.UserID, "remote_addr", c.ClientIP())
			api.WriteError(c, ErrUnauthenticated)
			return
		}

		c.Request = c.Request.WithContext(authz.WithIdentity(ctx, authz.Identity{
			UserID: subject.UserID,
			Role:   subject.Role,
		}))
		c.Next()
	}
}

// RequireRole はAuthRequiredの後段で使い、指定ロール以外のアクセスを403で拒否します。
func RequireRole(roles ...authz.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authz.FromContext(c.Request.Context())
		if !ok {
			api.WriteError(c, ErrUnauthenticated)
			return
		}
		if err := authz.AuthorizeRole(id, roles...); err != nil {
			slog.Warn("role check failed", "user_id", id.UserID, "role", id.Role, "remote_addr", c.ClientIP())
			api.WriteError(c, err)
			return
		}
		c.Next()
	}
}
