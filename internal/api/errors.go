package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

const (
	codeInternal    = "INTERNAL_ERROR"
	messageInternal = "internal server error"
)

// StatusOf はエラー種別をHTTPステータスコードに変換します。
// 分類されていないエラーは500になります。
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrUnsupportedFormat),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はエラーを統一形式のJSONレスポンスとして書き込み、後続のハンドラーを中断します。
// 内部エラーの詳細はログにのみ出力し、クライアントには返しません。
func WriteError(c *gin.Context, err error) {
	status := StatusOf(err)
	ae, ok := apperr.As(err)
	if !ok || status == http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote_addr", c.ClientIP(),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: messageInternal,
		})
		return
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   ae.Code,
		Message: ae.Message,
		Errors:  ae.Details,
	})
}
