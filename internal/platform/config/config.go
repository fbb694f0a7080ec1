// Package config はアプリケーション全体の設定を環境変数から読み込みます。
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Nachitrix/Book-reader/internal/platform/db"
	"github.com/Nachitrix/Book-reader/internal/platform/redis"
	"github.com/Nachitrix/Book-reader/internal/platform/storage"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

const EnvProduction = "production"

// RateLimit は認証エンドポイントのレート制限設定です。
type RateLimit struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Config はサーバーの全設定です。
type Config struct {
	AppEnv   string     `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// JWTSecret の検証はトークンサービスの生成時に行います。
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTExpire  time.Duration `env:"JWT_EXPIRE" envDefault:"720h"`
	CookieName string        `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxUploadBytes int64    `env:"UPLOAD_MAX_BYTES" envDefault:"52428800"`

	RateLimit RateLimit
	DB        db.Config
	Redis     redis.Config
	Storage   storage.Config
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Load は環境変数から設定を読み込んで検証します。
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, apperr.Wrap(apperr.ErrConfiguration, "CONFIG", "failed to parse environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は値の整合性を検証します。
func (c Config) Validate() error {
	switch {
	case c.MaxUploadBytes <= 0:
		return invalid("UPLOAD_MAX_BYTES must be positive")
	case c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0:
		return invalid("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	case c.JWTExpire <= 0:
		return invalid("JWT_EXPIRE must be positive")
	case c.CookieName == "":
		return invalid("AUTH_COOKIE_NAME must not be empty")
	case slices.ContainsFunc(c.CORSOrigins, badOrigin):
		return invalid("CORS_ALLOWED_ORIGINS entries must start with http:// or https://")
	}
	return nil
}

// badOrigin はCookie付きCORSで許可できないオリジン指定を検出します（"*"を含む）。
func badOrigin(o string) bool {
	return !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://")
}

func invalid(msg string) error {
	return apperr.E(apperr.ErrConfiguration, "CONFIG", fmt.Sprintf("invalid configuration: %s", msg))
}
