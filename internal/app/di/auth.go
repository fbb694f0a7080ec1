// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"

	"gorm.io/gorm"

	authadapters "github.com/Nachitrix/Book-reader/internal/feature/auth/adapters"
	authhandler "github.com/Nachitrix/Book-reader/internal/feature/auth/transport/handler"
	authusecase "github.com/Nachitrix/Book-reader/internal/feature/auth/usecase"
	"github.com/Nachitrix/Book-reader/internal/platform/config"
	jwtmw "github.com/Nachitrix/Book-reader/internal/platform/jwt"
	"github.com/Nachitrix/Book-reader/internal/platform/password"
)

// NewSubjectLoader adapts the user repository to the session guard.
// A missing user keeps its NotFound classification so the guard answers 401;
// any other repository error reaches the guard unchanged and becomes a 500.
func NewSubjectLoader(users authusecase.UserRepository) jwtmw.SubjectLoader {
	return func(ctx context.Context, userID uint) (*jwtmw.Subject, error) {
		u, err := users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &jwtmw.Subject{
			UserID:            u.ID,
			Role:              u.Role,
			PasswordChangedAt: u.PasswordChangedAt,
		}, nil
	}
}

// Auth bundles what the router needs from the auth feature.
type Auth struct {
	Handler  *authhandler.AuthHandler
	Subjects jwtmw.SubjectLoader
}

// NewAuth wires the credential store, the auth usecase and its handler.
func NewAuth(db *gorm.DB, tokens *jwtmw.Service, cfg config.Config) Auth {
	users := authadapters.NewUserGorm(db)
	creds := authusecase.NewCredentialStore(users, password.NewHasher(cfg.BcryptCost))
	uc := authusecase.NewAuthUsecase(users, creds, tokens)

	return Auth{
		Handler: authhandler.NewAuthHandler(uc, authhandler.CookieConfig{
			Name:   cfg.CookieName,
			Secure: cfg.IsProduction(),
			MaxAge: cfg.JWTExpire,
		}),
		Subjects: NewSubjectLoader(users),
	}
}
