package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	redisv9 "github.com/redis/go-redis/v9"

	"github.com/Nachitrix/Book-reader/internal/api"
	"github.com/Nachitrix/Book-reader/internal/app/di"
	"github.com/Nachitrix/Book-reader/internal/app/router"
	"github.com/Nachitrix/Book-reader/internal/platform/config"
	"github.com/Nachitrix/Book-reader/internal/platform/db"
	jwtmw "github.com/Nachitrix/Book-reader/internal/platform/jwt"
	"github.com/Nachitrix/Book-reader/internal/platform/metrics"
	infraredis "github.com/Nachitrix/Book-reader/internal/platform/redis"
	"github.com/Nachitrix/Book-reader/internal/platform/storage"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	slog.SetDefault(newLogger(cfg))
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := api.RegisterValidators(); err != nil {
		fatal("failed to register validators", err)
	}

	// JWT_SECRETが未設定の場合は起動しない
	tokens, err := jwtmw.NewService(cfg.JWTSecret, cfg.JWTExpire)
	if err != nil {
		fatal("token service misconfigured", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		fatal("failed to open database", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		fatal("failed to get sql.DB", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
		if !errors.Is(err, infraredis.ErrDisabled) {
			slog.Warn("Redis unavailable, running without it", "error", err)
		}
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fatal("failed to initialize storage", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	auth := di.NewAuth(gdb, tokens, cfg)
	r := router.NewRouter(router.Deps{
		Auth:        auth.Handler,
		Books:       di.NewBookHandler(gdb, store, m, cfg.MaxUploadBytes),
		Tokens:      tokens,
		Subjects:    auth.Subjects,
		CookieName:  cfg.CookieName,
		Limiter:     di.NewRateLimiter(rdb, cfg.RateLimit),
		Metrics:     m,
		DB:          sqlDB,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv, "storage", cfg.Storage.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}
