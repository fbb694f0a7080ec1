package password

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Passw0rd1")
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd1", hash, "password must not be stored in plaintext")

	assert.NoError(t, h.Compare(hash, "Passw0rd1"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrMismatch)
}

func TestHasher_CompareEmptyHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	assert.ErrorIs(t, h.Compare("", "anything"), ErrMismatch)
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	err := h.Compare("not-a-bcrypt-hash", "anything")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestHasher_HashTooLong(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(bcrypt.MinCost).Hash("Passw0rd" + strings.Repeat("a", 80))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestStrong(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"Passw0rd1", true},
		{"password1", false},
		{"PASSWORDX", false},
		{"Pa1", false},
		{"", false},
		{"Passw0rd" + strings.Repeat("a", 64), true},
		{"Passw0rd" + strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.20s_%d", tt.in, len(tt.in)), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Strong(tt.in))
		})
	}
}
