package di

import (
	"gorm.io/gorm"

	bookadapters "github.com/Nachitrix/Book-reader/internal/feature/books/adapters"
	bookhandler "github.com/Nachitrix/Book-reader/internal/feature/books/transport/handler"
	bookusecase "github.com/Nachitrix/Book-reader/internal/feature/books/usecase"
	"github.com/Nachitrix/Book-reader/internal/platform/metrics"
	"github.com/Nachitrix/Book-reader/internal/platform/storage"
)

// NewBookHandler wires the book repository, the artifact store and the lifecycle usecase.
// mがnilの場合、ライフサイクルの計測は行いません。
func NewBookHandler(db *gorm.DB, store storage.Store, m *metrics.Metrics, maxUploadBytes int64, opts ...bookusecase.Option) *bookhandler.BookHandler {
	var lm bookusecase.LifecycleMetrics
	if m != nil {
		lm = m
	}
	uc := bookusecase.NewBookUsecase(bookadapters.NewBookGorm(db), store, lm, opts...)
	return bookhandler.NewBookHandler(uc, maxUploadBytes)
}
