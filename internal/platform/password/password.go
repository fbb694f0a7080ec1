// Package password はbcryptによるパスワードのハッシュ化と検証を提供します。
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash はユーザーが存在しない場合の比較に使うハッシュです。
// 存在しないアカウントでも同じだけbcryptの計算時間がかかるようにします。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ErrMismatch is returned when the password does not match the hash.
var ErrMismatch = errors.New("password mismatch")

// ErrTooLong はbcryptが扱えない長さのパスワードです。
var ErrTooLong = fmt.Errorf("password exceeds %d bytes", MaxLength)

// Hasher hashes and compares passwords with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はパスワードをbcryptでハッシュ化します。
func (h *Hasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare はハッシュと平文パスワードを定数時間で比較します。
// 空のハッシュが渡された場合もダミーハッシュとの比較を行い、常にErrMismatchを返します。
func (h *Hasher) Compare(hash, plain string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}

const (
	// MinLength はパスワードの最低文字数です。
	MinLength = 8
	// MaxLength はbcryptが受け付ける最大バイト数です。
	MaxLength = 72
)

// Requirement はパスワード要件の説明文です。
func Requirement() string {
	return fmt.Sprintf("password must be %d to %d characters and contain a number and an uppercase letter", MinLength, MaxLength)
}

// Strong は長さ・英大文字・数字の要件を満たすかを返します。長さはバイト数で数えます。
func Strong(s string) bool {
	if len(s) < MinLength || len(s) > MaxLength {
		return false
	}
	var upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && digit
}
