package repositories

import (
	"context"

	"github.com/membernet/backend/internal/models"
)

// PostRepository exposes data access for member posts.
type PostRepository interface {
	Create(ctx context.Context, post models.Post) error
	ListFeed(ctx context.Context, memberID string) ([]models.Post, error)
}
