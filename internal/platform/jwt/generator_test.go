package jwtmw

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

// newTestService は時刻を固定したServiceを生成します。
func newTestService(t *testing.T, secret string, expiration time.Duration, now time.Time) *Service {
	t.Helper()

	s, err := NewService(secret, expiration)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

// TestNewService は各種設定でServiceが正しく生成されることを検証します。
func TestNewService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		secret         string
		expiration     time.Duration
		wantExpiration time.Duration
		wantErr        bool
	}{
		{"standard config", "my-secret-key", time.Hour, time.Hour, false},
		{"zero expiration falls back to default", "secret", 0, DefaultExpiration, false},
		{"missing secret", "", time.Hour, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewService(tt.secret, tt.expiration)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrConfiguration)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, string(s.secret))
			assert.Equal(t, tt.wantExpiration, s.expiration)
		})
	}
}

// TestService_RoundTrip は発行したトークンを検証すると同じユーザーIDが得られることを検証します。
func TestService_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	s := newTestService(t, "test-secret", time.Hour, now)

	for _, userID := range []uint{1, 42, 999999} {
		tok, err := s.Issue(userID)
		require.NoError(t, err)

		claims, err := s.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		// iatは秒単位に切り捨てられる
		assert.Equal(t, now.Truncate(time.Second), claims.IssuedAt.UTC())
	}
}

// TestService_Issue_Claims はトークンがHS256で署名され、sub・iat・expを含むことを検証します。
func TestService_Issue_Claims(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := newTestService(t, "test-secret", 2*time.Hour, now)

	tok, err := s.Issue(7)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(tk *jwt.Token) (any, error) {
		assert.Equal(t, "HS256", tk.Method.Alg())
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, float64(now.Unix()), claims["iat"])
	assert.Equal(t, float64(now.Add(2*time.Hour).Unix()), claims["exp"])
}

// TestService_Verify_Invalid は不正なトークン（改ざん・期限切れ・none署名等）がErrInvalidTokenになることを検証します。
func TestService_Verify_Invalid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := newTestService(t, "test-secret", time.Hour, now)

	tok1, err := s.Issue(1)
	require.NoError(t, err)
	tok2, err := s.Issue(2)
	require.NoError(t, err)
	p1, p2 := strings.Split(tok1, "."), strings.Split(tok2, ".")
	// tok2のペイロードにtok1の署名を付け替える
	tampered := p1[0] + "." + p2[1] + "." + p1[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed token", "not.a.valid.token"},
		{"random string", "randomstring"},
		{"tampered payload", tampered},
		{"wrong secret", signClaims(t, jwt.SigningMethodHS256, []byte("wrong-secret"), jwt.MapClaims{
			"sub": "1", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
		})},
		{"expired token", signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{
			"sub": "1", "iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix(),
		})},
		{"missing exp", signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{
			"sub": "1", "iat": now.Unix(),
		})},
		{"missing iat", signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{
			"sub": "1", "exp": now.Add(time.Hour).Unix(),
		})},
		{"non-numeric subject", signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{
			"sub": "alice", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
		})},
		{"none algorithm", signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
			"sub": "1", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// TestService_Verify_ExpiresAfterTTL は有効期限を過ぎたトークンが拒否されることを検証します。
func TestService_Verify_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestService(t, "test-secret", time.Hour, issued)

	tok, err := s.Issue(1)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = s.Verify(tok)
	assert.NoError(t, err)

	s.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// signClaims はテスト用に任意のクレームで署名済みトークンを生成します。
func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}
