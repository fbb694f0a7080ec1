package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nachitrix/Book-reader/internal/feature/auth/domain/entity"
)

// PasswordHasher はパスワードのハッシュ化と比較を抽象化します。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare はhashが空でも同等の計算時間をかけて失敗を返す必要があります。
	Compare(hash, plain string) error
}

// CredentialStore はパスワードの検証と更新を担います。
// パスワードを変更するとPasswordChangedAtが更新され、それ以前に発行されたトークンは無効になります。
type CredentialStore struct {
	users  UserRepository
	hasher PasswordHasher
	now    func() time.Time
}

// NewCredentialStore はCredentialStoreを生成します。
func NewCredentialStore(users UserRepository, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher, now: time.Now}
}

// Verify はメールアドレスとパスワードを検証します。
// ユーザーが存在しない場合もハッシュ比較を行い、応答時間から存在有無を推測できないようにします。
// 戻り値のエラーはErrUserNotFound、ErrPasswordMismatch、またはストアのエラーです。
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	cmpErr := s.hasher.Compare(hash, password)

	if user == nil {
		return nil, ErrUserNotFound
	}
	if cmpErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordMismatch, cmpErr)
	}
	return user, nil
}

// HashNew はまだ永続化されていないユーザー用のハッシュを生成します。
// 新規作成はパスワードの「変更」ではないためPasswordChangedAtは設定しません。
func (s *CredentialStore) HashNew(password string) (string, error) {
	return s.hasher.Hash(password)
}

// SetPassword はパスワードを更新し、PasswordChangedAtを現在時刻にして保存します。
func (s *CredentialStore) SetPassword(ctx context.Context, user *entity.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	changedAt := s.now()
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

// Matches はユーザーの現在のパスワードと一致するかを返します。
func (s *CredentialStore) Matches(user *entity.User, password string) bool {
	return s.hasher.Compare(user.PasswordHash, password) == nil
}
