package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

const (
	maxTitleLen       = 200
	maxAuthorLen      = 200
	maxDescriptionLen = 2000

	// locatorPrefix は保存済み書籍ファイルのキーの接頭辞です。
	locatorPrefix = "books"

	defaultDeleteAttempts = 3
	defaultDeleteBackoff  = 50 * time.Millisecond
)

// BookRepository は書籍メタデータの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type BookRepository interface {
	// FindByID は書籍を取得します。存在しない場合はErrBookNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.Book, error)
	List(ctx context.Context, f ListFilter, s Sort, p Page) ([]entity.Book, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
	Create(ctx context.Context, b *entity.Book) error
	// UpdateFields はnilでないフィールドのみを更新します。
	UpdateFields(ctx context.Context, id uint, in UpdateInput) error
	Delete(ctx context.Context, id uint) error
}

// ArtifactStore は書籍ファイルの保存先です。
type ArtifactStore interface {
	WriteTemp(ctx context.Context, r io.Reader) (string, int64, error)
	Promote(ctx context.Context, tempKey, finalKey string) error
	Delete(ctx context.Context, key string) error
}

// LifecycleMetrics receives lifecycle events worth counting.
type LifecycleMetrics interface {
	UploadSucceeded(format string)
	UploadFailed(format string)
	OrphanCleanupFailed()
	ArtifactDeleteFailed()
}

type nopMetrics struct{}

func (nopMetrics) UploadSucceeded(string) {}
func (nopMetrics) UploadFailed(string)    {}
func (nopMetrics) OrphanCleanupFailed()   {}
func (nopMetrics) ArtifactDeleteFailed()  {}

// CreateInput は書籍作成の入力です。TempLocatorはStageUploadの戻り値です。
type CreateInput struct {
	TempLocator  string
	Format       string
	Size         int64
	OriginalName string
	Title        string
	Author       string
	Description  string
	Visibility   entity.Visibility
}

// UpdateInput is a partial metadata update. Nil fields are left unchanged.
// The locator and format of a book are never updated.
type UpdateInput struct {
	Title       *string
	Author      *string
	Description *string
	Visibility  *entity.Visibility
}

// IsEmpty reports whether the update changes nothing.
func (in UpdateInput) IsEmpty() bool {
	return in.Title == nil && in.Author == nil && in.Description == nil && in.Visibility == nil
}

// Option configures a bookUsecase.
type Option func(*bookUsecase)

// WithDeleteRetry は書籍ファイル削除の試行回数と待機時間を設定します。
func WithDeleteRetry(attempts int, backoff time.Duration) Option {
	return func(u *bookUsecase) {
		if attempts > 0 {
			u.deleteAttempts = attempts
		}
		if backoff >= 0 {
			u.deleteBackoff = backoff
		}
	}
}

// WithLocatorFunc replaces the locator generator. Tests use it to get predictable locators.
func WithLocatorFunc(fn func(entity.Format) string) Option {
	return func(u *bookUsecase) {
		u.newLocator = fn
	}
}

// bookUsecase は書籍のライフサイクル（アップロード・参照・更新・削除）を管理します。
type bookUsecase struct {
	books   BookRepository
	store   ArtifactStore
	metrics LifecycleMetrics

	newLocator     func(entity.Format) string
	deleteAttempts int
	deleteBackoff  time.Duration
}

// NewBookUsecase はbookUsecaseの新しいインスタンスを生成します。
// metricsがnilの場合、計測は行いません。
func NewBookUsecase(books BookRepository, store ArtifactStore, metrics LifecycleMetrics, opts ...Option) *bookUsecase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	u := &bookUsecase{
		books:          books,
		store:          store,
		metrics:        metrics,
		newLocator:     newLocator,
		deleteAttempts: defaultDeleteAttempts,
		deleteBackoff:  defaultDeleteBackoff,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// newLocator は衝突しない保存キー "books/<uuid>-<unixnano>.<ext>" を生成します。
func newLocator(f entity.Format) string {
	return fmt.Sprintf("%s/%s-%d.%s", locatorPrefix, uuid.NewString(), time.Now().UnixNano(), f)
}

// StageUpload はアップロード内容を一時領域に書き込みます。
// 一時ファイルはCreateで昇格されるか、失敗時に破棄されます。
func (u *bookUsecase) StageUpload(ctx context.Context, r io.Reader) (string, int64, error) {
	key, size, err := u.store.WriteTemp(ctx, r)
	if err != nil {
		return "", 0, fmt.Errorf("stage upload: %w", err)
	}
	return key, size, nil
}

// discard は昇格されなかった一時ファイルを削除します。失敗してもログに残すのみです。
func (u *bookUsecase) discard(ctx context.Context, tempKey string) {
	if tempKey == "" {
		return
	}
	if err := u.store.Delete(context.WithoutCancel(ctx), tempKey); err != nil {
		slog.Warn("failed to discard staged upload", "error", err, "locator", tempKey)
	}
}

// Create はステージ済みのファイルを最終キーへ昇格し、メタデータを登録します。
//
// 手順:
//  1. 形式を検証（未対応ならErrUnsupportedFormat、一時ファイルは破棄）
//  2. メタデータを検証（タイトル未指定時は元のファイル名から補完）
//  3. 一意な保存キーへ昇格
//  4. メタデータを登録
//  5. 登録に失敗した場合は昇格済みファイルを削除し、元のエラーを返す
func (u *bookUsecase) Create(ctx context.Context, ownerID uint, in CreateInput) (*entity.Book, error) {
	format, ok := entity.ParseFormat(in.Format)
	if !ok {
		u.discard(ctx, in.TempLocator)
		u.metrics.UploadFailed("unsupported")
		return nil, ErrUnsupportedFormat
	}

	book, err := newBook(ownerID, format, in)
	if err != nil {
		u.discard(ctx, in.TempLocator)
		u.metrics.UploadFailed(string(format))
		return nil, err
	}

	locator := u.newLocator(format)
	if err := u.store.Promote(ctx, in.TempLocator, locator); err != nil {
		u.discard(ctx, in.TempLocator)
		u.metrics.UploadFailed(string(format))
		return nil, fmt.Errorf("promote upload: %w", err)
	}
	book.Locator = locator

	if err := u.books.Create(ctx, book); err != nil {
		// リクエストがキャンセルされていても補償削除は実行する
		if cleanupErr := u.store.Delete(context.WithoutCancel(ctx), locator); cleanupErr != nil {
			slog.Error("failed to remove orphaned artifact",
				"error", cleanupErr,
				"locator", locator,
				"user_id", ownerID,
			)
			u.metrics.OrphanCleanupFailed()
		}
		u.metrics.UploadFailed(string(format))
		return nil, fmt.Errorf("insert book: %w", err)
	}

	u.metrics.UploadSucceeded(string(format))
	slog.Info("book stored", "book_id", book.ID, "user_id", ownerID, "locator", locator)
	return book, nil
}

func newBook(ownerID uint, format entity.Format, in CreateInput) (*entity.Book, error) {
	if ownerID == 0 {
		return nil, authz.ErrNoIdentity
	}
	if in.TempLocator == "" || in.Size <= 0 {
		return nil, ErrNoFile
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		base := filepath.Base(in.OriginalName)
		title = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = entity.VisibilityPrivate
	}

	book := &entity.Book{
		OwnerID:      ownerID,
		Title:        title,
		Author:       strings.TrimSpace(in.Author),
		Description:  strings.TrimSpace(in.Description),
		Size:         in.Size,
		Format:       format,
		Visibility:   visibility,
		OriginalName: filepath.Base(in.OriginalName),
	}

	var details []string
	if book.Title == "" {
		details = append(details, "title is required")
	}
	details = append(details, checkMetadata(book.Title, book.Author, book.Description, book.Visibility)...)
	if len(details) > 0 {
		return nil, ErrInvalidInput.WithDetails(details...)
	}
	return book, nil
}

func checkMetadata(title, author, description string, visibility entity.Visibility) []string {
	var details []string
	if utf8.RuneCountInString(title) > maxTitleLen {
		details = append(details, fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}
	if utf8.RuneCountInString(author) > maxAuthorLen {
		details = append(details, fmt.Sprintf("author must be at most %d characters", maxAuthorLen))
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		details = append(details, fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
	}
	if !visibility.Valid() {
		details = append(details, "visibility must be one of: public, private")
	}
	return details
}

// Get は閲覧可能な書籍を返します。
// 閲覧権限がない場合も存在を漏らさないようErrBookNotFoundを返します。
func (u *bookUsecase) Get(ctx context.Context, id authz.Identity, bookID uint) (*entity.Book, error) {
	book, err := u.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.VisibleTo(id) {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// authorizeMutation は更新・削除対象の書籍を取得し、操作権限を確認します。
// 所有者でも管理者でもない呼び出し元には、公開書籍であってもNotFoundを返します。
func (u *bookUsecase) authorizeMutation(ctx context.Context, id authz.Identity, bookID uint) (*entity.Book, error) {
	book, err := u.Get(ctx, id, bookID)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeOwnership(id, book.OwnerID); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			slog.Info("mutation by non-owner rejected", "user_id", id.UserID, "book_id", book.ID)
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// Update は書籍のメタデータを部分更新します。
func (u *bookUsecase) Update(ctx context.Context, id authz.Identity, bookID uint, in UpdateInput) (*entity.Book, error) {
	book, err := u.authorizeMutation(ctx, id, bookID)
	if err != nil {
		return nil, err
	}

	in = trimUpdate(in)
	if err := validateUpdate(book, in); err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return book, nil
	}

	if err := u.books.UpdateFields(ctx, book.ID, in); err != nil {
		return nil, err
	}
	return u.books.FindByID(ctx, book.ID)
}

func trimUpdate(in UpdateInput) UpdateInput {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		s := strings.TrimSpace(*p)
		return &s
	}
	in.Title = trim(in.Title)
	in.Author = trim(in.Author)
	in.Description = trim(in.Description)
	return in
}

// validateUpdate は更新適用後の値を検証します。
func validateUpdate(book *entity.Book, in UpdateInput) error {
	title, author, description, visibility := book.Title, book.Author, book.Description, book.Visibility
	var details []string
	if in.Title != nil {
		title = *in.Title
		if title == "" {
			details = append(details, "title cannot be empty")
		}
	}
	if in.Author != nil {
		author = *in.Author
	}
	if in.Description != nil {
		description = *in.Description
	}
	if in.Visibility != nil {
		visibility = *in.Visibility
	}
	details = append(details, checkMetadata(title, author, description, visibility)...)
	if len(details) > 0 {
		return ErrInvalidInput.WithDetails(details...)
	}
	return nil
}

// Delete は書籍ファイルとメタデータを削除します。
//
// ファイル削除はベストエフォートで、一定回数まで再試行します。
// 再試行しても失敗した場合はログとメトリクスに記録し、メタデータの削除は必ず行います。
func (u *bookUsecase) Delete(ctx context.Context, id authz.Identity, bookID uint) error {
	book, err := u.authorizeMutation(ctx, id, bookID)
	if err != nil {
		return err
	}

	// 変更開始後はキャンセルを反映しない
	ctx = context.WithoutCancel(ctx)
	u.deleteArtifact(ctx, book)

	if err := u.books.Delete(ctx, book.ID); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			// 並行する削除が先に完了した
			return nil
		}
		return fmt.Errorf("delete book: %w", err)
	}
	slog.Info("book deleted", "book_id", book.ID, "user_id", id.UserID)
	return nil
}

func (u *bookUsecase) deleteArtifact(ctx context.Context, book *entity.Book) {
	var err error
	for attempt := 1; attempt <= u.deleteAttempts; attempt++ {
		if err = u.store.Delete(ctx, book.Locator); err == nil {
			return
		}
		slog.Warn("artifact delete attempt failed",
			"error", err,
			"attempt", attempt,
			"book_id", book.ID,
			"locator", book.Locator,
		)
		if attempt < u.deleteAttempts && u.deleteBackoff > 0 {
			time.Sleep(u.deleteBackoff * time.Duration(attempt))
		}
	}
	slog.Error("giving up on artifact delete; record will be removed anyway",
		"error", err,
		"book_id", book.ID,
		"locator", book.Locator,
	)
	u.metrics.ArtifactDeleteFailed()
}

// List は呼び出し元が所有する書籍を一覧します。
func (u *bookUsecase) List(ctx context.Context, id authz.Identity, q ListQuery) (*ListResult, error) {
	if id.UserID == 0 {
		return nil, authz.ErrNoIdentity
	}
	return u.list(ctx, ListFilter{OwnerID: id.UserID}, q)
}

// ListAll は全ユーザーの書籍を一覧します。管理者のみ実行できます。
func (u *bookUsecase) ListAll(ctx context.Context, id authz.Identity, q ListQuery) (*ListResult, error) {
	if err := authz.AuthorizeRole(id, authz.RoleAdmin); err != nil {
		return nil, err
	}
	return u.list(ctx, ListFilter{}, q)
}

func (u *bookUsecase) list(ctx context.Context, f ListFilter, q ListQuery) (*ListResult, error) {
	q = q.normalize()
	sort, err := ParseSort(q.Sort)
	if err != nil {
		return nil, err
	}
	f.Search = q.Search

	total, err := u.books.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	items := []entity.Book{}
	if int64(q.offset()) < total {
		items, err = u.books.List(ctx, f, sort, Page{Offset: q.offset(), Limit: q.Limit})
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages(total, q.Limit),
	}, nil
}
