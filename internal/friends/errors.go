package friends

import "errors"

var (
	// ErrMemberNotFound indicates a participant id does not resolve to a member.
	ErrMemberNotFound = errors.New("member not found")
	// ErrRequestNotFound indicates no pending request exists for the (sender, recipient) pair.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrDuplicateRequest indicates a request for the pair is already pending, in either direction.
	ErrDuplicateRequest = errors.New("friend request already pending")
	// ErrAlreadyFriends indicates the two members already share a confirmed friendship.
	ErrAlreadyFriends = errors.New("members are already friends")
	// ErrNotFriends indicates no confirmed friendship exists between the two members.
	ErrNotFriends = errors.New("members are not friends")
	// ErrSelfRelation indicates a member attempted a relationship operation on themselves.
	ErrSelfRelation = errors.New("cannot befriend yourself")
	// ErrInvalidAction indicates a response action outside accept/decline.
	ErrInvalidAction = errors.New("action must be accept or decline")
)
