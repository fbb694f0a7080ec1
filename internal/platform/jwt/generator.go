// Package jwtmw はJWTの発行・検証と、それを使う認証ミドルウェアを提供します。
package jwtmw

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

// DefaultExpiration はトークンの既定の有効期間（30日）です。
const DefaultExpiration = 30 * 24 * time.Hour

var (
	// ErrMissingSecret is returned by NewService when no signing secret is configured.
	ErrMissingSecret = apperr.E(apperr.ErrConfiguration, "JWT_SECRET_MISSING", "JWT signing secret is not configured")

	// ErrInvalidToken covers malformed, badly signed, expired and subject-less tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims は検証済みトークンから取り出した値です。
type Claims struct {
	UserID   uint
	IssuedAt time.Time
}

// Service issues and verifies HS256 bearer tokens.
type Service struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewService はServiceを生成します。
// シークレットが空の場合はErrMissingSecretを返します（起動時に致命的エラーとして扱う）。
// expirationが0以下の場合はDefaultExpirationを使います。
func NewService(secret string, expiration time.Duration) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Service{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// Issue はユーザーIDと発行時刻を埋め込んだ署名済みトークンを生成します。
func (s *Service) Issue(userID uint) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返します。
// 失敗理由に関わらずErrInvalidTokenを返します（原因はラップして保持）。
func (s *Service) Verify(tokenStr string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &rc, func(t *jwt.Token) (any, error) {
		// HMAC以外のアルゴリズムは拒否
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(rc.Subject, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, rc.Subject)
	}
	if rc.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}

	return Claims{UserID: uint(id), IssuedAt: rc.IssuedAt.Time}, nil
}
