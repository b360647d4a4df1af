package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/membernet/backend/internal/logging"
	"github.com/membernet/backend/internal/models"
)

// Directory is the narrow member-directory contract the engine mutates
// relationship state through. Every mutation is atomic on a single member
// row; InTx composes several mutations into one all-or-nothing unit.
type Directory interface {
	FindByID(ctx context.Context, id string) (models.Member, error)

	// AppendPendingRequest records senderID on recipientID's pending set.
	// It must be a no-op returning ErrDuplicateRequest when the entry
	// already exists, so concurrent duplicate sends cannot double-insert.
	AppendPendingRequest(ctx context.Context, recipientID, senderID string) error

	// RemovePendingRequest deletes senderID from memberID's pending set,
	// returning ErrRequestNotFound when no such entry exists.
	RemovePendingRequest(ctx context.Context, memberID, senderID string) error

	// AppendFriend adds friendID to memberID's friend set. Adding an id
	// that is already present returns ErrAlreadyFriends.
	AppendFriend(ctx context.Context, memberID, friendID string) error

	// RemoveFriend deletes friendID from memberID's friend set, returning
	// ErrNotFriends when the edge is absent.
	RemoveFriend(ctx context.Context, memberID, friendID string) error

	// InTx runs fn against a directory view whose mutations commit or roll
	// back as a unit. The transaction is resolved exactly once on every
	// path before InTx returns.
	InTx(ctx context.Context, fn func(tx Directory) error) error
}

// Engine implements the friend-relationship state machine over a Directory.
// It holds no relationship state of its own; every operation re-reads the
// participants so concurrent mutations are decided by the directory, not by
// stale in-process copies.
type Engine struct {
	directory Directory
}

// NewEngine constructs an Engine backed by the provided directory.
func NewEngine(directory Directory) *Engine {
	if directory == nil {
		panic("friends: directory must not be nil")
	}
	return &Engine{directory: directory}
}

// SendRequest records a pending friend request from sender to recipient and
// returns the recipient's updated record.
func (e *Engine) SendRequest(ctx context.Context, senderID, recipientID string) (models.Member, error) {
	if senderID == recipientID {
		return models.Member{}, ErrSelfRelation
	}

	sender, err := e.directory.FindByID(ctx, senderID)
	if err != nil {
		return models.Member{}, fmt.Errorf("resolve sender: %w", err)
	}

	recipient, err := e.directory.FindByID(ctx, recipientID)
	if err != nil {
		return models.Member{}, fmt.Errorf("resolve recipient: %w", err)
	}

	switch {
	case recipient.HasPendingRequestFrom(senderID):
		return models.Member{}, ErrDuplicateRequest
	case sender.HasPendingRequestFrom(recipientID):
		// The reverse-direction request is already awaiting this sender's
		// answer; a second edge would leave two pending entries for one pair.
		return models.Member{}, ErrDuplicateRequest
	case recipient.IsFriendsWith(senderID):
		return models.Member{}, ErrAlreadyFriends
	}

	if err := e.directory.AppendPendingRequest(ctx, recipientID, senderID); err != nil {
		return models.Member{}, fmt.Errorf("record friend request: %w", err)
	}

	updated, err := e.directory.FindByID(ctx, recipientID)
	if err != nil {
		return models.Member{}, fmt.Errorf("reload recipient: %w", err)
	}

	return updated, nil
}

// ListPendingRequests resolves the member's unanswered requests to the
// senders' records. Entries pointing at deleted members are dropped.
func (e *Engine) ListPendingRequests(ctx context.Context, memberID string) ([]models.Member, error) {
	member, err := e.directory.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("resolve member: %w", err)
	}

	return e.resolve(ctx, member.PendingFriendRequests)
}

// ListFriends resolves the member's confirmed friends to their records.
func (e *Engine) ListFriends(ctx context.Context, memberID string) ([]models.Member, error) {
	member, err := e.directory.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("resolve member: %w", err)
	}

	return e.resolve(ctx, member.Friends)
}

// Response actions accepted by RespondToRequest.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// RespondToRequest resolves the pending request from senderID on
// recipientID's record. Declining removes the entry; accepting removes it
// and mirrors the friendship on both records inside one transaction, so no
// reader can observe a half-written edge.
func (e *Engine) RespondToRequest(ctx context.Context, recipientID, senderID, action string) error {
	if action != ActionAccept && action != ActionDecline {
		return ErrInvalidAction
	}

	recipient, err := e.directory.FindByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	if _, err := e.directory.FindByID(ctx, senderID); err != nil {
		return fmt.Errorf("resolve sender: %w", err)
	}

	if !recipient.HasPendingRequestFrom(senderID) {
		return ErrRequestNotFound
	}

	if action == ActionDecline {
		if err := e.directory.RemovePendingRequest(ctx, recipientID, senderID); err != nil {
			return fmt.Errorf("decline friend request: %w", err)
		}
		return nil
	}

	ctx, span := logging.StartSpan(ctx, "friends.accept")
	defer span.End()

	err = e.directory.InTx(ctx, func(tx Directory) error {
		if err := tx.RemovePendingRequest(ctx, recipientID, senderID); err != nil {
			return err
		}
		if err := tx.AppendFriend(ctx, recipientID, senderID); err != nil {
			return err
		}
		return tx.AppendFriend(ctx, senderID, recipientID)
	})
	if err != nil {
		logging.FromContext(ctx).Error("accept transaction rolled back",
			"recipientId", recipientID, "senderId", senderID, "error", err)
		return fmt.Errorf("accept friend request: %w", err)
	}

	return nil
}

// RemoveFriend severs a confirmed friendship, deleting the edge from both
// records as a unit so the symmetry invariant survives the operation.
func (e *Engine) RemoveFriend(ctx context.Context, memberID, friendID string) error {
	if memberID == friendID {
		return ErrSelfRelation
	}

	member, err := e.directory.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("resolve member: %w", err)
	}

	if _, err := e.directory.FindByID(ctx, friendID); err != nil {
		return fmt.Errorf("resolve friend: %w", err)
	}

	if !member.IsFriendsWith(friendID) {
		return ErrNotFriends
	}

	ctx, span := logging.StartSpan(ctx, "friends.unfriend")
	defer span.End()

	err = e.directory.InTx(ctx, func(tx Directory) error {
		if err := tx.RemoveFriend(ctx, memberID, friendID); err != nil {
			return err
		}
		return tx.RemoveFriend(ctx, friendID, memberID)
	})
	if err != nil {
		logging.FromContext(ctx).Error("unfriend transaction rolled back",
			"memberId", memberID, "friendId", friendID, "error", err)
		return fmt.Errorf("remove friend: %w", err)
	}

	return nil
}

func (e *Engine) resolve(ctx context.Context, ids []string) ([]models.Member, error) {
	resolved := make([]models.Member, 0, len(ids))
	for _, id := range ids {
		member, err := e.directory.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				logging.FromContext(ctx).Warn("dropping dangling relationship reference", "memberId", id)
				continue
			}
			return nil, fmt.Errorf("resolve member %s: %w", id, err)
		}
		resolved = append(resolved, member)
	}
	return resolved, nil
}
