package models

import "time"

// Member represents an account within the MemberNet platform. The two
// relationship fields mirror the document model: unordered id-sets kept
// directly on the member row.
type Member struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time

	// PendingFriendRequests holds ids of members who sent this member an
	// unanswered friend request.
	PendingFriendRequests []string
	// Friends holds ids of members with a confirmed, mirrored friendship.
	Friends []string
}

// HasPendingRequestFrom reports whether senderID has an unanswered request
// on this member's record.
func (m Member) HasPendingRequestFrom(senderID string) bool {
	return contains(m.PendingFriendRequests, senderID)
}

// IsFriendsWith reports whether memberID appears in this member's friend set.
func (m Member) IsFriendsWith(memberID string) bool {
	return contains(m.Friends, memberID)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
