package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

func TestAuthorizeRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      Identity
		allowed []Role
		wantErr bool
	}{
		{"admin allowed", Identity{UserID: 1, Role: RoleAdmin}, []Role{RoleAdmin}, false},
		{"user allowed among several", Identity{UserID: 2, Role: RoleUser}, []Role{RoleAdmin, RoleUser}, false},
		{"user denied", Identity{UserID: 2, Role: RoleUser}, []Role{RoleAdmin}, true},
		{"no roles allowed", Identity{UserID: 1, Role: RoleAdmin}, nil, true},
		{"unknown role denied", Identity{UserID: 3, Role: Role("root")}, []Role{RoleAdmin, RoleUser}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := AuthorizeRole(tt.id, tt.allowed...)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrAuthorization)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuthorizeOwnership(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      Identity
		ownerID uint
		wantErr bool
	}{
		{"owner passes", Identity{UserID: 7, Role: RoleUser}, 7, false},
		{"admin passes regardless of owner", Identity{UserID: 1, Role: RoleAdmin}, 7, false},
		{"non-owner denied", Identity{UserID: 8, Role: RoleUser}, 7, true},
		{"zero identity denied", Identity{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := AuthorizeOwnership(tt.id, tt.ownerID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 42, Role: RoleAdmin})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id.UserID)
	assert.True(t, id.IsAdmin())
}
