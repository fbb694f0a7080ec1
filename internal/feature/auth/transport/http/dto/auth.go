// Package dto はauthフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import "github.com/Nachitrix/Book-reader/internal/feature/auth/domain/entity"

// RegisterReq は/auth/registerエンドポイントのリクエストボディを表します。
type RegisterReq struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,strongpassword"`
}

// LoginReq は/auth/loginエンドポイントのリクエストボディを表します。
// 必須チェックはユースケースで行い、MISSING_FIELDSとして返します。
type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExternalAuthReq は外部IDプロバイダーで検証済みの情報です。
type ExternalAuthReq struct {
	IDToken string `json:"idToken"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
}

// ChangePasswordReq は/auth/passwordエンドポイントのリクエストボディを表します。
type ChangePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required,strongpassword"`
}

// UserRes is the public view of a user.
type UserRes struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
	Avatar     string `json:"avatar,omitempty"`
}

// AuthRes is returned by register, login and external sign-in.
type AuthRes struct {
	Success bool    `json:"success"`
	Token   string  `json:"token"`
	User    UserRes `json:"user"`
}

// MeRes is returned by /auth/me.
type MeRes struct {
	Success bool    `json:"success"`
	User    UserRes `json:"user"`
}

// NewUserRes はエンティティから公開用のユーザー情報を生成します。
func NewUserRes(u *entity.User) UserRes {
	return UserRes{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		IsVerified: u.Verified,
		Avatar:     u.Avatar,
	}
}
