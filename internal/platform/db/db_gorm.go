// Package db はメタデータストア（gorm）への接続とマイグレーションを提供します。
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authentity "github.com/Nachitrix/Book-reader/internal/feature/auth/domain/entity"
	bookentity "github.com/Nachitrix/Book-reader/internal/feature/books/domain/entity"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// retryInterval は接続リトライの間隔です。
const retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	Driver string `env:"DB_DRIVER" envDefault:"postgres"`

	// URL が設定されていればHost等より優先されます。
	URL            string        `env:"DATABASE_URL"`
	Host           string        `env:"DB_HOST" envDefault:"localhost"`
	Port           string        `env:"DB_PORT" envDefault:"5432"`
	User           string        `env:"DB_USER"`
	Password       string        `env:"DB_PASSWORD"`
	Name           string        `env:"DB_NAME" envDefault:"bookreader"`
	SSLMode        string        `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath     string        `env:"DB_SQLITE_PATH" envDefault:"bookreader.db"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"60s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse db env: %w", err)
	}
	return cfg, nil
}

// BuildDSN は設定から接続文字列を組み立てます。
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverSQLite:
		return cfg.SQLitePath
	default:
		if cfg.URL != "" {
			return cfg.URL
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
	}
}

// Opener は接続文字列からgorm.DBを開く関数です。テストで差し替えられます。
type Opener func(dsn string) (*gorm.DB, error)

// gormConfig はTranslateErrorを有効にし、一意制約違反をgorm.ErrDuplicatedKeyに変換させます。
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// NewOpener はドライバー名に対応するOpenerを返します。
func NewOpener(driver string) (Opener, error) {
	switch driver {
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gormConfig())
		}, nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), gormConfig())
		}, nil
	default:
		return nil, apperr.E(apperr.ErrConfiguration, "DB_DRIVER", fmt.Sprintf("unknown database driver %q", driver))
	}
}

// ConnectWithRetry はtimeoutに達するまでretryInterval間隔で接続を試みます。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "interval", retryInterval)
		time.Sleep(min(retryInterval, time.Until(deadline)+time.Millisecond))
	}
}

// Open は設定に従って接続し、必要であればマイグレーションを実行します。
func Open(cfg Config) (*gorm.DB, error) {
	open, err := NewOpener(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(BuildDSN(cfg), cfg.ConnectTimeout, open)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate はユーザーと書籍のテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := db.AutoMigrate(&authentity.User{}, &bookentity.Book{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
