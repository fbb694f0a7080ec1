// Package entity defines the domain models for the books feature.
package entity

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// Format is the file format of an uploaded book.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatMOBI Format = "mobi"
)

// ParseFormat は拡張子（先頭のドットは任意）をFormatに変換します。
// 大文字小文字は区別しません。未対応の形式の場合はfalseを返します。
func ParseFormat(ext string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimPrefix(ext, ".")))
	switch f {
	case FormatPDF, FormatEPUB, FormatMOBI:
		return f, true
	default:
		return "", false
	}
}

// FormatOf はファイル名の拡張子からFormatを判定します。
func FormatOf(filename string) (Format, bool) {
	return ParseFormat(filepath.Ext(filename))
}

// Visibility controls who besides the owner may read a book.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Book is an uploaded document and its metadata.
// The file itself lives in the artifact store under Locator.
type Book struct {
	ID      uint `gorm:"primaryKey"`
	OwnerID uint `gorm:"index;not null"`

	Title       string `gorm:"size:200;not null"`
	Author      string `gorm:"size:200"`
	Description string `gorm:"size:2000"`

	// Locator is the artifact store key. It never changes after creation.
	Locator string `gorm:"size:512;uniqueIndex;not null"`
	Size    int64  `gorm:"not null"`
	Format  Format `gorm:"size:10;not null"`

	Visibility Visibility `gorm:"size:10;not null;default:private"`

	// CoverImage is reserved for extracted cover art; nil until set.
	CoverImage   *string `gorm:"size:512"`
	OriginalName string  `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublic reports whether any authenticated user may read the book.
func (b *Book) IsPublic() bool {
	return b.Visibility == VisibilityPublic
}

// VisibleTo は指定されたIdentityがこの書籍を閲覧できるかを判定します。
// 所有者、管理者、または公開書籍の場合に閲覧可能です。
func (b *Book) VisibleTo(id authz.Identity) bool {
	if b.IsPublic() || id.IsAdmin() {
		return true
	}
	return id.UserID != 0 && id.UserID == b.OwnerID
}
