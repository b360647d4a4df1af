package app

import (
	"context"
	"log/slog"

	"github.com/membernet/backend/internal/auth"
	"github.com/membernet/backend/internal/config"
	"github.com/membernet/backend/internal/db"
	"github.com/membernet/backend/internal/friends"
	"github.com/membernet/backend/internal/handlers"
	"github.com/membernet/backend/internal/middleware"
	"github.com/membernet/backend/internal/repositories"
	"github.com/membernet/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	sessionStore := repositories.NewPostgresSessionStore(pool)
	sessions := auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)
	directory := repositories.NewPostgresDirectory(pool)

	var avatars handlers.AvatarStorage
	if cfg.ObjectStore.Bucket != "" {
		s3Storage, err := storage.NewS3AvatarStorage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		avatars = s3Storage
	} else {
		logger.Warn("avatar bucket not configured, avatar uploads disabled")
	}

	return handlers.Dependencies{
		Members:     repositories.NewPostgresMemberRepository(pool),
		Sessions:    sessions,
		Verifier:    sessions,
		Friends:     friends.NewEngine(directory),
		Posts:       repositories.NewPostgresPostRepository(pool),
		Avatars:     avatars,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginRateLimit, 5*cfg.LoginRateWindow),
	}, nil
}
