// Package adapters はbooksフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/feature/books/usecase"
)

// sortColumns はソートキーとカラム名の対応です。ここにないキーでは並べ替えません。
var sortColumns = map[usecase.SortField]string{
	usecase.SortCreatedAt: "created_at",
	usecase.SortUpdatedAt: "updated_at",
	usecase.SortTitle:     "title",
	usecase.SortAuthor:    "author",
}

// bookGorm はBookRepositoryインターフェースのGORM実装です。
type bookGorm struct {
	db *gorm.DB
}

var _ usecase.BookRepository = (*bookGorm)(nil)

// NewBookGorm は指定されたgorm.DB接続でbookGormの新しいインスタンスを生成します。
func NewBookGorm(db *gorm.DB) *bookGorm {
	return &bookGorm{db: db}
}

// FindByID はIDで書籍を取得します。存在しない場合はusecase.ErrBookNotFoundを返します。
func (r *bookGorm) FindByID(ctx context.Context, id uint) (*entity.Book, error) {
	var b entity.Book
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープします。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// filtered は所有者と検索語で絞り込んだクエリを返します。
// 検索はタイトル・著者・説明に対する大文字小文字を区別しない部分一致です。
func (r *bookGorm) filtered(ctx context.Context, f usecase.ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entity.Book{})
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			like, like, like)
	}
	return q
}

// List は条件に一致する書籍を指定順で1ページ分取得します。
func (r *bookGorm) List(ctx context.Context, f usecase.ListFilter, s usecase.Sort, p usecase.Page) ([]entity.Book, error) {
	col, ok := sortColumns[s.Field]
	if !ok {
		return nil, usecase.ErrInvalidSort
	}

	var books []entity.Book
	err := r.filtered(ctx, f).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: s.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: s.Desc}).
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// Count は条件に一致する書籍の総数を返します。
func (r *bookGorm) Count(ctx context.Context, f usecase.ListFilter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Create は書籍を登録します。
func (r *bookGorm) Create(ctx context.Context, b *entity.Book) error {
	if b == nil {
		return errors.New("book is nil")
	}
	return r.db.WithContext(ctx).Create(b).Error
}

// UpdateFields はnilでないフィールドのみを更新します。保存キーと形式は更新対象外です。
func (r *bookGorm) UpdateFields(ctx context.Context, id uint, in usecase.UpdateInput) error {
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Author != nil {
		fields["author"] = *in.Author
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Visibility != nil {
		fields["visibility"] = *in.Visibility
	}
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&entity.Book{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrBookNotFound
	}
	return nil
}

// Delete は書籍のレコードを削除します。
func (r *bookGorm) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrBookNotFound
	}
	return nil
}
