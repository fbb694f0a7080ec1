package jwtmw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachitrix/Book-reader/internal/api"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var errSubjectNotFound = apperr.E(apperr.ErrNotFound, "USER_NOT_FOUND", "user not found")

// staticLoader はユーザーIDごとに固定のSubjectを返すSubjectLoaderです。
func staticLoader(subjects map[uint]*Subject) SubjectLoader {
	return func(_ context.Context, userID uint) (*Subject, error) {
		if s, ok := subjects[userID]; ok {
			return s, nil
		}
		return nil, errSubjectNotFound
	}
}

// serve はミドルウェアを通したリクエストを実行し、到達したIdentityを返します。
func serve(t *testing.T, mw gin.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *authz.Identity) {
	t.Helper()

	var got *authz.Identity
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		id, ok := authz.FromContext(c.Request.Context())
		require.True(t, ok, "identity must be attached to the request context")
		got = &id
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, got
}

// TestAuthRequired_MissingToken はトークンがない場合やプレフィックスが不正な場合に401が返されることを検証します。
func TestAuthRequired_MissingToken(t *testing.T) {
	t.Parallel()

	s := newTestService(t, "test-secret", time.Hour, time.Now())
	mw := AuthRequired(s, staticLoader(nil), DefaultCookieName)

	tests := []struct {
		name       string
		authHeader string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase", "bearer token123"},
		{"no space after Bearer", "Bearertoken123"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w, id := serve(t, mw, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Nil(t, id)
		})
	}
}

// TestAuthRequired_InvalidToken は不正なトークンでも失敗理由を漏らさず同じ401を返すことを検証します。
func TestAuthRequired_InvalidToken(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := newTestService(t, "test-secret", time.Hour, now)
	other := newTestService(t, "wrong-secret", time.Hour, now)
	expired := newTestService(t, "test-secret", time.Hour, now.Add(-2*time.Hour))

	wrongSecret, err := other.Issue(1)
	require.NoError(t, err)
	expiredTok, err := expired.Issue(1)
	require.NoError(t, err)

	mw := AuthRequired(s, staticLoader(map[uint]*Subject{1: {UserID: 1, Role: authz.RoleUser}}), DefaultCookieName)

	for name, tok := range map[string]string{
		"malformed":    "not.a.valid.token",
		"wrong secret": wrongSecret,
		"expired":      expiredTok,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tok)

			w, _ := serve(t, mw, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, ErrUnauthenticated.Code, body.Error)
			assert.Equal(t, ErrUnauthenticated.Message, body.Message)
		})
	}
}

// TestAuthRequired_TokenSources はBearerヘッダーがCookieより優先されることを検証します。
func TestAuthRequired_TokenSources(t *testing.T) {
	t.Parallel()

	s := newTestService(t, "test-secret", time.Hour, time.Now())
	loader := staticLoader(map[uint]*Subject{
		1: {UserID: 1, Role: authz.RoleUser},
		2: {UserID: 2, Role: authz.RoleAdmin},
	})
	mw := AuthRequired(s, loader, DefaultCookieName)

	tok1, err := s.Issue(1)
	require.NoError(t, err)
	tok2, err := s.Issue(2)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantUser uint
		wantRole authz.Role
	}{
		{"bearer only", "Bearer " + tok1, "", 1, authz.RoleUser},
		{"cookie only", "", tok2, 2, authz.RoleAdmin},
		{"bearer wins over cookie", "Bearer " + tok1, tok2, 1, authz.RoleUser},
		{"malformed header falls back to cookie", "Token " + tok1, tok2, 2, authz.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}

			w, id := serve(t, mw, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.NotNil(t, id)
			assert.Equal(t, tt.wantUser, id.UserID)
			assert.Equal(t, tt.wantRole, id.Role)
		})
	}
}

// TestAuthRequired_SubjectResolution はユーザーが存在しない場合は401、ストア障害は500になることを検証します。
func TestAuthRequired_SubjectResolution(t *testing.T) {
	t.Parallel()

	s := newTestService(t, "test-secret", time.Hour, time.Now())
	tok, err := s.Issue(5)
	require.NoError(t, err)

	tests := []struct {
		name       string
		loader     SubjectLoader
		wantStatus int
	}{
		{"unknown user", staticLoader(nil), http.StatusUnauthorized},
		{"store failure", func(context.Context, uint) (*Subject, error) {
			return nil, errors.New("connection refused")
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tok)

			w, id := serve(t, AuthRequired(s, tt.loader, DefaultCookieName), req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Nil(t, id)
		})
	}
}

// TestAuthRequired_StaleToken はパスワード変更以前に発行されたトークンが拒否されることを検証します。
func TestAuthRequired_StaleToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, "test-secret", 24*time.Hour, issued)
	tok, err := s.Issue(1)
	require.NoError(t, err)
	// 検証時刻は発行の1時間後
	s.now = func() time.Time { return issued.Add(time.Hour) }

	at := func(d time.Duration) *time.Time {
		v := issued.Add(d)
		return &v
	}

	tests := []struct {
		name       string
		changedAt  *time.Time
		wantStatus int
	}{
		{"never changed", nil, http.StatusOK},
		{"changed before issue", at(-time.Minute), http.StatusOK},
		{"changed in the same second", at(300 * time.Millisecond), http.StatusUnauthorized},
		{"changed after issue", at(30 * time.Minute), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			loader := staticLoader(map[uint]*Subject{1: {UserID: 1, Role: authz.RoleUser, PasswordChangedAt: tt.changedAt}})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tok)

			w, _ := serve(t, AuthRequired(s, loader, DefaultCookieName), req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// TestStale は秒単位で比較し、同一時刻を「変更前の発行」とみなすことを検証します。
func TestStale(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 10, 0, time.UTC)
	ptr := func(v time.Time) *time.Time { return &v }

	assert.False(t, Stale(base, nil))
	assert.False(t, Stale(base, &time.Time{}))
	assert.False(t, Stale(base, ptr(base.Add(-time.Second))))
	assert.True(t, Stale(base, ptr(base)))
	assert.True(t, Stale(base, ptr(base.Add(999*time.Millisecond))))
	assert.True(t, Stale(base, ptr(base.Add(time.Second))))
}

// TestRequireRole はロールに応じて通過・403・401となることを検証します。
func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		identity   *authz.Identity
		wantStatus int
	}{
		{"admin allowed", &authz.Identity{UserID: 1, Role: authz.RoleAdmin}, http.StatusOK},
		{"user forbidden", &authz.Identity{UserID: 2, Role: authz.RoleUser}, http.StatusForbidden},
		{"no identity", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := gin.New()
			r.GET("/", func(c *gin.Context) {
				if tt.identity != nil {
					c.Request = c.Request.WithContext(authz.WithIdentity(c.Request.Context(), *tt.identity))
				}
				c.Next()
			}, RequireRole(authz.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
