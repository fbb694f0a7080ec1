// Package dto はbooksフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"time"

	"github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
)

// CreateBookForm はPOST /booksのマルチパートフォーム（ファイル以外）です。
type CreateBookForm struct {
	Title       string `form:"title" binding:"max=200"`
	Author      string `form:"author" binding:"max=200"`
	Description string `form:"description" binding:"max=2000"`
	// IsPublic は"true"の場合のみ公開になります。
	IsPublic string `form:"isPublic"`
}

// UpdateBookReq はPUT /books/:idのリクエストボディです。省略されたフィールドは変更しません。
type UpdateBookReq struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Author      *string `json:"author" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	IsPublic    *bool   `json:"isPublic"`
}

// ListBooksQuery はGET /booksのクエリパラメータです。
type ListBooksQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Sort   string `form:"sort"`
	Search string `form:"search"`
}

// BookRes is the full view of a book.
type BookRes struct {
	ID           uint      `json:"id"`
	OwnerID      uint      `json:"ownerId"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Description  string    `json:"description"`
	Format       string    `json:"format"`
	FileSize     int64     `json:"fileSize"`
	IsPublic     bool      `json:"isPublic"`
	CoverImage   *string   `json:"coverImage"`
	OriginalName string    `json:"originalName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BookSummaryRes is the list view of a book. CoverImage is always present, null when unset.
type BookSummaryRes struct {
	ID         uint    `json:"id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Format     string  `json:"format"`
	CoverImage *string `json:"coverImage"`
}

// BookListRes is returned by the listing endpoints.
type BookListRes struct {
	Success    bool             `json:"success"`
	Items      []BookSummaryRes `json:"items"`
	Count      int              `json:"count"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// NewBookRes はエンティティから公開用の書籍情報を生成します。保存キーは含めません。
func NewBookRes(b *entity.Book) BookRes {
	return BookRes{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		Title:        b.Title,
		Author:       b.Author,
		Description:  b.Description,
		Format:       string(b.Format),
		FileSize:     b.Size,
		IsPublic:     b.IsPublic(),
		CoverImage:   b.CoverImage,
		OriginalName: b.OriginalName,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// NewBookSummaries は一覧表示用に書籍を変換します。
func NewBookSummaries(books []entity.Book) []BookSummaryRes {
	out := make([]BookSummaryRes, 0, len(books))
	for _, b := range books {
		out = append(out, BookSummaryRes{
			ID:         b.ID,
			Title:      b.Title,
			Author:     b.Author,
			Format:     string(b.Format),
			CoverImage: b.CoverImage,
		})
	}
	return out
}
