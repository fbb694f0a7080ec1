// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nachitrix/Book-reader/internal/api"
	"github.com/Nachitrix/Book-reader/internal/feature/auth/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/feature/auth/transport/http/dto"
	"github.com/Nachitrix/Book-reader/internal/feature/auth/usecase"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, name, email, password string) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	ExternalAuth(ctx context.Context, ext usecase.ExternalIdentity) (*usecase.AuthResult, error)
	Me(ctx context.Context, userID uint) (*entity.User, error)
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

// CookieConfig はトークンCookieの設定です。
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// logoutCookieTTL はログアウト時に上書きするCookieの寿命です。
const logoutCookieTTL = 10 * time.Second

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth   AuthUsecase
	cookie CookieConfig
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie}
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, int(maxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

// respondWithToken はトークンをCookieに設定し、本文にも含めて返します。
func (h *AuthHandler) respondWithToken(c *gin.Context, status int, res *usecase.AuthResult) {
	h.setTokenCookie(c, res.Token, h.cookie.MaxAge)
	c.JSON(status, dto.AuthRes{
		Success: true,
		Token:   res.Token,
		User:    dto.NewUserRes(res.User),
	})
}

// Register はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400（VALIDATION_ERROR）
// - メール重複時は400（EMAIL_IN_USE）
// - 成功時はトークン付きで201
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		slog.Warn("register failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, res)
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - メールアドレスかパスワードが空の場合は400（MISSING_FIELDS）
// - 認証失敗時は理由に関わらず401（INVALID_CREDENTIALS）
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// ユーザー列挙攻撃を防止するため、ユースケースは常に同じエラーを返す
		slog.Warn("login failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	h.respondWithToken(c, http.StatusOK, res)
}

// ExternalAuth は外部IDプロバイダーによるサインインを処理します。
func (h *AuthHandler) ExternalAuth(c *gin.Context) {
	var req dto.ExternalAuthReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.WriteError(c, api.BindingError(err))
		return
	}
	res, err := h.auth.ExternalAuth(c.Request.Context(), usecase.ExternalIdentity{
		Email:      req.Email,
		Name:       req.Name,
		ExternalID: req.IDToken,
		Avatar:     req.Avatar,
	})
	if err != nil {
		slog.Warn("external auth failed", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, res)
}

// Me は認証済みユーザーの情報を返します。
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := authz.FromContext(c.Request.Context())
	if !ok {
		api.WriteError(c, authz.ErrNoIdentity)
		return
	}
	user, err := h.auth.Me(c.Request.Context(), id.UserID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MeRes{Success: true, User: dto.NewUserRes(user)})
}

// Logout はトークンCookieを短命のダミー値で上書きします。
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "none", logoutCookieTTL)
	c.JSON(http.StatusOK, api.OK(gin.H{}))
}

// ChangePassword はパスワードを変更します。変更前に発行されたトークンは全て無効になります。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id, ok := authz.FromContext(c.Request.Context())
	if !ok {
		api.WriteError(c, authz.ErrNoIdentity)
		return
	}
	var req dto.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.WriteError(c, api.BindingError(err))
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		slog.Warn("password change failed", "error", err, "user_id", id.UserID, "remote_addr", c.ClientIP())
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "Password updated. Please log in again."})
}
