// Package storage はアップロードされた書籍ファイル（アーティファクト）の保存先を抽象化します。
//
// 書き込みは必ず一時領域に対して行い、Promoteで最終キーへ原子的に移動します。
// 最終キーの下に書き込み途中の内容が見えることはありません。
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"

	tempPrefix = "tmp"
)

// Store is the artifact store consumed by the book lifecycle.
type Store interface {
	// WriteTemp は内容を一時領域に書き込み、一時キーとサイズを返します。
	WriteTemp(ctx context.Context, r io.Reader) (string, int64, error)
	// Promote は一時キーの内容を最終キーへ原子的に移動します。
	Promote(ctx context.Context, tempKey, finalKey string) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Config はアーティファクトストアの設定です。
type Config struct {
	Driver         string `env:"STORAGE_DRIVER" envDefault:"local"`
	LocalRoot      string `env:"STORAGE_LOCAL_ROOT" envDefault:"uploads"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`

	// S3Timeout は1リクエスト（ファイル転送を含む）の上限です。
	S3Timeout time.Duration `env:"S3_TIMEOUT" envDefault:"5m"`
}

// New は設定に応じたStoreを生成します。
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocalStore(cfg.LocalRoot)
	case DriverS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, apperr.E(apperr.ErrConfiguration, "STORAGE_DRIVER",
			fmt.Sprintf("unknown storage driver %q", cfg.Driver))
	}
}
