package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// TestUser_JSONHidesSecrets はパスワードハッシュ等が外部にシリアライズされないことを検証します。
func TestUser_JSONHidesSecrets(t *testing.T) {
	t.Parallel()

	ext := "google-123"
	now := time.Now()
	u := User{
		ID:                1,
		Name:              "Alice",
		Email:             "a@x.com",
		PasswordHash:      "$2a$10$secret",
		Role:              authz.RoleUser,
		ExternalID:        &ext,
		PasswordChangedAt: &now,
	}

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "PasswordHash")
	assert.NotContains(t, m, "passwordHash")
	assert.NotContains(t, string(b), "$2a$10$secret")
	assert.NotContains(t, string(b), "google-123")
	assert.Equal(t, "a@x.com", m["email"])
	assert.Equal(t, "user", m["role"])
}
