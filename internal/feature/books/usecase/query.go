package usecase

import (
	"math"
	"strings"

	"github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
)

const (
	// DefaultLimit は一覧取得のデフォルト件数です。
	DefaultLimit = 10
	// MaxLimit は一覧取得の最大件数です。
	MaxLimit = 100
	// DefaultSort は一覧取得のデフォルト並び順です（作成日時の降順）。
	DefaultSort = "-createdAt"
	// MaxPage はオフセット計算がintに収まるページ番号の上限です。
	MaxPage = math.MaxInt / MaxLimit
)

// SortField is a whitelisted sort key.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTitle     SortField = "title"
	SortAuthor    SortField = "author"
)

// Sort is a parsed sort order.
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort は"-createdAt"のような並び順指定を解析します。
// 先頭の"-"は降順を表します。許可されていないキーはErrInvalidSortになります。
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultSort
	}
	desc := strings.HasPrefix(s, "-")
	field := SortField(strings.TrimPrefix(s, "-"))
	switch field {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortAuthor:
		return Sort{Field: field, Desc: desc}, nil
	default:
		return Sort{}, ErrInvalidSort
	}
}

// ListQuery holds the caller's pagination, sort and search parameters.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Search string
}

// ListFilter は一覧・件数取得の絞り込み条件です。
// OwnerIDが0の場合は全ユーザーの書籍が対象になります。
type ListFilter struct {
	OwnerID uint
	Search  string
}

// Page is the window passed to the repository.
type Page struct {
	Offset int
	Limit  int
}

// ListResult is one page of books plus pagination metadata.
type ListResult struct {
	Items      []entity.Book
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// normalize はページ番号と件数を既定の範囲に収めます。
func (q ListQuery) normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
