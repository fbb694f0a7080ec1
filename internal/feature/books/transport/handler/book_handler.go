// Package handler はbooksフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nachitrix/Book-reader/internal/api"
	"github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/feature/books/transport/http/dto"
	"github.com/Nachitrix/Book-reader/internal/feature/books/usecase"
	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// multipartMemory はマルチパート解析時にメモリへ保持する上限です。超過分は一時ファイルに書き出されます。
const multipartMemory = 8 << 20

// BookUsecase は書籍操作のユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type BookUsecase interface {
	StageUpload(ctx context.Context, r io.Reader) (string, int64, error)
	Create(ctx context.Context, ownerID uint, in usecase.CreateInput) (*entity.Book, error)
	Get(ctx context.Context, id authz.Identity, bookID uint) (*entity.Book, error)
	List(ctx context.Context, id authz.Identity, q usecase.ListQuery) (*usecase.ListResult, error)
	ListAll(ctx context.Context, id authz.Identity, q usecase.ListQuery) (*usecase.ListResult, error)
	Update(ctx context.Context, id authz.Identity, bookID uint, in usecase.UpdateInput) (*entity.Book, error)
	Delete(ctx context.Context, id authz.Identity, bookID uint) error
}

// BookHandler は書籍操作のHTTPリクエストを処理します。
type BookHandler struct {
	uc       BookUsecase
	maxBytes int64
}

// NewBookHandler はBookHandlerの新しいインスタンスを生成します。
// maxBytesはアップロードされるリクエストボディの上限です（0以下で無制限）。
func NewBookHandler(uc BookUsecase, maxBytes int64) *BookHandler {
	return &BookHandler{uc: uc, maxBytes: maxBytes}
}

func identity(c *gin.Context) (authz.Identity, bool) {
	id, ok := authz.FromContext(c.Request.Context())
	if !ok {
		api.WriteError(c, authz.ErrNoIdentity)
	}
	return id, ok
}

// bookID は:idパラメータを解析します。数値でないIDは存在しない書籍として扱います。
func bookID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		api.WriteError(c, usecase.ErrBookNotFound)
		return 0, false
	}
	return uint(n), true
}

// uploadError はフォームファイル取得時のエラーを分類します。
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return usecase.ErrNoFile
	case errors.As(err, &tooLarge):
		return usecase.ErrFileTooLarge
	default:
		return api.ErrValidation.WithDetails("malformed multipart body")
	}
}

// Create は書籍ファイルのアップロードを処理します。
//
// エンドポイント例:
// POST /books (multipart/form-data: file, title, author, description, isPublic)
//
// 形式の検証はファイルを一時領域に書き込む前に行います。
func (h *BookHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		api.WriteError(c, uploadError(err))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		api.WriteError(c, uploadError(err))
		return
	}
	format, ok := entity.FormatOf(fh.Filename)
	if !ok {
		slog.Warn("unsupported upload rejected", "filename", fh.Filename, "user_id", id.UserID)
		api.WriteError(c, usecase.ErrUnsupportedFormat)
		return
	}

	var form dto.CreateBookForm
	if err := c.ShouldBind(&form); err != nil {
		api.WriteError(c, api.BindingError(err))
		return
	}

	temp, size, err := h.stage(c.Request.Context(), fh)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	visibility := entity.VisibilityPrivate
	if form.IsPublic == "true" {
		visibility = entity.VisibilityPublic
	}
	book, err := h.uc.Create(c.Request.Context(), id.UserID, usecase.CreateInput{
		TempLocator:  temp,
		Format:       string(format),
		Size:         size,
		OriginalName: fh.Filename,
		Title:        form.Title,
		Author:       form.Author,
		Description:  form.Description,
		Visibility:   visibility,
	})
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.OK(dto.NewBookRes(book)))
}

func (h *BookHandler) stage(ctx context.Context, fh *multipart.FileHeader) (string, int64, error) {
	f, err := fh.Open()
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return h.uc.StageUpload(ctx, f)
}

func (h *BookHandler) listQuery(c *gin.Context) (usecase.ListQuery, bool) {
	var q dto.ListBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.WriteError(c, api.BindingError(err))
		return usecase.ListQuery{}, false
	}
	return usecase.ListQuery{Page: q.Page, Limit: q.Limit, Sort: q.Sort, Search: q.Search}, true
}

func writeList(c *gin.Context, res *usecase.ListResult) {
	items := dto.NewBookSummaries(res.Items)
	c.JSON(http.StatusOK, dto.BookListRes{
		Success:    true,
		Items:      items,
		Count:      len(items),
		Total:      res.Total,
		Page:       res.Page,
		TotalPages: res.TotalPages,
	})
}

// List は呼び出し元の書籍を一覧します。
//
// エンドポイント例:
// GET /books?page=1&limit=10&sort=-createdAt&search=dune
func (h *BookHandler) List(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	res, err := h.uc.List(c.Request.Context(), id, q)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	writeList(c, res)
}

// ListAll は全ユーザーの書籍を一覧します（管理者のみ）。
func (h *BookHandler) ListAll(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	res, err := h.uc.ListAll(c.Request.Context(), id, q)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	writeList(c, res)
}

// Get は書籍の詳細を返します。
func (h *BookHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.uc.Get(c.Request.Context(), id, bid)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(dto.NewBookRes(book)))
}

// Update は書籍のメタデータを部分更新します。
func (h *BookHandler) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookID(c)
	if !ok {
		return
	}
	var req dto.UpdateBookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.WriteError(c, api.BindingError(err))
		return
	}

	in := usecase.UpdateInput{Title: req.Title, Author: req.Author, Description: req.Description}
	if req.IsPublic != nil {
		v := entity.VisibilityPrivate
		if *req.IsPublic {
			v = entity.VisibilityPublic
		}
		in.Visibility = &v
	}
	book, err := h.uc.Update(c.Request.Context(), id, bid, in)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(dto.NewBookRes(book)))
}

// Delete は書籍を削除します。
func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id, bid); err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(gin.H{}))
}
