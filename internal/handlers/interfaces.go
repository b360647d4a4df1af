package handlers

import (
	"context"
	"io"

	"github.com/membernet/backend/internal/models"
)

// MemberStore captures the persistence operations required by the account handlers.
type MemberStore interface {
	Create(ctx context.Context, member models.Member) error
	FindByID(ctx context.Context, id string) (models.Member, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (models.Member, error)
	UpdateProfile(ctx context.Context, member models.Member) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAvatarURL(ctx context.Context, id, avatarURL string) error
	Search(ctx context.Context, query string, limit int) ([]models.Member, error)
}

// SessionManager issues and refreshes authentication tokens for members.
type SessionManager interface {
	Issue(ctx context.Context, memberID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// FriendService is the relationship engine surface consumed by the friend handlers.
type FriendService interface {
	SendRequest(ctx context.Context, senderID, recipientID string) (models.Member, error)
	ListPendingRequests(ctx context.Context, memberID string) ([]models.Member, error)
	ListFriends(ctx context.Context, memberID string) ([]models.Member, error)
	RespondToRequest(ctx context.Context, recipientID, senderID, action string) error
	RemoveFriend(ctx context.Context, memberID, friendID string) error
}

// PostStore captures persistence for the posting and feed workflows.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	ListFeed(ctx context.Context, memberID string) ([]models.Post, error)
}

// AvatarStorage persists uploaded avatar images and returns their public location.
type AvatarStorage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
