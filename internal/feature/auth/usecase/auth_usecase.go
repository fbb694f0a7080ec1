package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Nachitrix/Book-reader/internal/feature/auth/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/platform/password"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// Update はユーザーの全フィールドを保存します。
	Update(ctx context.Context, user *entity.User) error
}

// TokenIssuer はトークン発行のインターフェースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（platform/jwt）ではなくコンシューマー（usecase）が定義します。
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// AuthResult はトークンを発行した認証操作の結果です。
type AuthResult struct {
	Token string
	User  *entity.User
}

// ExternalIdentity は外部IDプロバイダーによって検証済みの利用者情報です。
// このパッケージはIDトークンの署名を検証しません。
type ExternalIdentity struct {
	Email      string
	Name       string
	ExternalID string
	Avatar     string
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users  UserRepository
	creds  *CredentialStore
	tokens TokenIssuer
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, creds *CredentialStore, tokens TokenIssuer) *authUsecase {
	return &authUsecase{
		users:  users,
		creds:  creds,
		tokens: tokens,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(pw string) error {
	if !password.Strong(pw) {
		return ErrInvalidInput.WithDetails(password.Requirement())
	}
	return nil
}

func (u *authUsecase) issue(user *entity.User) (*AuthResult, error) {
	token, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録し、トークンを発行します。
func (u *authUsecase) Register(ctx context.Context, name, email, pw string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, ErrInvalidInput.WithDetails("name and email are required")
	}
	if err := validatePassword(pw); err != nil {
		return nil, err
	}

	hash, err := u.creds.HashNew(pw)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         authz.RoleUser,
		Verified:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)
	return u.issue(user)
}

// Login はユーザーを認証し、成功時にトークンを返します。
// ユーザー未検出とパスワード不一致はどちらもErrInvalidCredentialsになります。
func (u *authUsecase) Login(ctx context.Context, email, pw string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || pw == "" {
		return nil, ErrMissingFields
	}

	user, err := u.creds.Verify(ctx, email, pw)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return u.issue(user)
}

// ExternalAuth は外部IDプロバイダーで検証済みのメールアドレスでログイン、または新規登録します。
// 既存ユーザーに外部IDが未設定であれば紐付けます。
func (u *authUsecase) ExternalAuth(ctx context.Context, ext ExternalIdentity) (*AuthResult, error) {
	email := normalizeEmail(ext.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	user, err := u.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.ExternalID == nil && ext.ExternalID != "" {
			id := ext.ExternalID
			user.ExternalID = &id
			if err := u.users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, ErrUserNotFound):
		name := strings.TrimSpace(ext.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = &entity.User{
			Name:     name,
			Email:    email,
			Role:     authz.RoleUser,
			Verified: true,
			Avatar:   ext.Avatar,
		}
		if ext.ExternalID != "" {
			id := ext.ExternalID
			user.ExternalID = &id
		}
		if err := u.users.Create(ctx, user); err != nil {
			return nil, err
		}
		slog.Info("user registered via external identity", "user_id", user.ID)
	default:
		return nil, err
	}

	return u.issue(user)
}

// Me は認証済みユーザーを取得します。
func (u *authUsecase) Me(ctx context.Context, userID uint) (*entity.User, error) {
	return u.users.FindByID(ctx, userID)
}

// ChangePassword は現在のパスワードを確認してから新しいパスワードを設定します。
// 変更以前に発行された全てのトークンは無効になり、新しいトークンは発行しません。
// パスワード未設定（外部ID専用）のアカウントでは現在のパスワードの確認を省略します。
func (u *authUsecase) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" && !u.creds.Matches(user, current) {
		return ErrIncorrectPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	if err := u.creds.SetPassword(ctx, user, next); err != nil {
		return err
	}
	slog.Info("password changed", "user_id", user.ID)
	return nil
}
