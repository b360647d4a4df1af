package repositories

import (
	"context"

	"github.com/membernet/backend/internal/models"
)

// MemberRepository defines the data access contract for member accounts.
type MemberRepository interface {
	Create(ctx context.Context, member models.Member) error
	FindByID(ctx context.Context, id string) (models.Member, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (models.Member, error)
	UpdateProfile(ctx context.Context, member models.Member) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAvatarURL(ctx context.Context, id, avatarURL string) error
	Search(ctx context.Context, query string, limit int) ([]models.Member, error)
}
