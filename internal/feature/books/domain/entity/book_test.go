package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Format
		wantOK bool
	}{
		{"pdf", FormatPDF, true},
		{".epub", FormatEPUB, true},
		{"MOBI", FormatMOBI, true},
		{".Pdf", FormatPDF, true},
		{"xyz", "", false},
		{"", "", false},
		{"..pdf", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	f, ok := FormatOf("Dune.EPUB")
	assert.True(t, ok)
	assert.Equal(t, FormatEPUB, f)

	_, ok = FormatOf("notes.xyz")
	assert.False(t, ok)

	_, ok = FormatOf("no-extension")
	assert.False(t, ok)
}

func TestBook_VisibleTo(t *testing.T) {
	t.Parallel()

	private := &Book{OwnerID: 7, Visibility: VisibilityPrivate}
	public := &Book{OwnerID: 7, Visibility: VisibilityPublic}

	owner := authz.Identity{UserID: 7, Role: authz.RoleUser}
	other := authz.Identity{UserID: 8, Role: authz.RoleUser}
	admin := authz.Identity{UserID: 1, Role: authz.RoleAdmin}

	assert.True(t, private.VisibleTo(owner))
	assert.True(t, private.VisibleTo(admin))
	assert.False(t, private.VisibleTo(other))
	assert.False(t, private.VisibleTo(authz.Identity{}))
	assert.True(t, public.VisibleTo(other))
}
