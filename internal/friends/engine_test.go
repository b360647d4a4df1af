package friends

import (
	"context"
	"errors"
	"testing"

	"github.com/membernet/backend/internal/models"
)

// memoryDirectory implements Directory over plain maps. InTx snapshots the
// state and restores it when fn fails, mirroring the rollback behaviour of
// the real transactional directory.
type memoryDirectory struct {
	members map[string]*models.Member

	// failAppendFriendFor aborts AppendFriend calls targeting this member id.
	failAppendFriendFor string
}

func newMemoryDirectory(ids ...string) *memoryDirectory {
	d := &memoryDirectory{members: make(map[string]*models.Member)}
	for _, id := range ids {
		d.members[id] = &models.Member{ID: id, Username: "user-" + id, FirstName: "First-" + id}
	}
	return d
}

func (d *memoryDirectory) FindByID(_ context.Context, id string) (models.Member, error) {
	member, ok := d.members[id]
	if !ok {
		return models.Member{}, ErrMemberNotFound
	}
	return *member, nil
}

func (d *memoryDirectory) AppendPendingRequest(_ context.Context, recipientID, senderID string) error {
	member, ok := d.members[recipientID]
	if !ok {
		return ErrMemberNotFound
	}
	if member.HasPendingRequestFrom(senderID) {
		return ErrDuplicateRequest
	}
	member.PendingFriendRequests = append(member.PendingFriendRequests, senderID)
	return nil
}

func (d *memoryDirectory) RemovePendingRequest(_ context.Context, memberID, senderID string) error {
	member, ok := d.members[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	if !member.HasPendingRequestFrom(senderID) {
		return ErrRequestNotFound
	}
	member.PendingFriendRequests = remove(member.PendingFriendRequests, senderID)
	return nil
}

func (d *memoryDirectory) AppendFriend(_ context.Context, memberID, friendID string) error {
	if d.failAppendFriendFor == memberID {
		return errors.New("injected write failure")
	}
	member, ok := d.members[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	if member.IsFriendsWith(friendID) {
		return ErrAlreadyFriends
	}
	member.Friends = append(member.Friends, friendID)
	return nil
}

func (d *memoryDirectory) RemoveFriend(_ context.Context, memberID, friendID string) error {
	member, ok := d.members[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	if !member.IsFriendsWith(friendID) {
		return ErrNotFriends
	}
	member.Friends = remove(member.Friends, friendID)
	return nil
}

func (d *memoryDirectory) InTx(_ context.Context, fn func(tx Directory) error) error {
	snapshot := make(map[string]*models.Member, len(d.members))
	for id, member := range d.members {
		copied := *member
		copied.PendingFriendRequests = append([]string(nil), member.PendingFriendRequests...)
		copied.Friends = append([]string(nil), member.Friends...)
		snapshot[id] = &copied
	}

	if err := fn(d); err != nil {
		d.members = snapshot
		return err
	}
	return nil
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func (d *memoryDirectory) mustFind(t *testing.T, id string) models.Member {
	t.Helper()
	member, err := d.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find member %s: %v", id, err)
	}
	return member
}

func TestEngineSendRequest(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	updated, err := engine.SendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	if !updated.HasPendingRequestFrom("alice") {
		t.Fatalf("expected pending request from alice, got %+v", updated.PendingFriendRequests)
	}

	if len(updated.PendingFriendRequests) != 1 {
		t.Fatalf("expected exactly one pending entry, got %d", len(updated.PendingFriendRequests))
	}
}

func TestEngineSendRequestGuards(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		prepare   func(dir *memoryDirectory, engine *Engine)
		sender    string
		recipient string
		wantErr   error
	}{
		{
			name:      "self request",
			sender:    "alice",
			recipient: "alice",
			wantErr:   ErrSelfRelation,
		},
		{
			name:      "unknown sender",
			sender:    "ghost",
			recipient: "bob",
			wantErr:   ErrMemberNotFound,
		},
		{
			name:      "unknown recipient",
			sender:    "alice",
			recipient: "ghost",
			wantErr:   ErrMemberNotFound,
		},
		{
			name: "duplicate send",
			prepare: func(_ *memoryDirectory, engine *Engine) {
				if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
					t.Fatalf("seed request: %v", err)
				}
			},
			sender:    "alice",
			recipient: "bob",
			wantErr:   ErrDuplicateRequest,
		},
		{
			name: "reverse direction already pending",
			prepare: func(_ *memoryDirectory, engine *Engine) {
				if _, err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
					t.Fatalf("seed reverse request: %v", err)
				}
			},
			sender:    "alice",
			recipient: "bob",
			wantErr:   ErrDuplicateRequest,
		},
		{
			name: "already friends",
			prepare: func(dir *memoryDirectory, _ *Engine) {
				dir.members["alice"].Friends = []string{"bob"}
				dir.members["bob"].Friends = []string{"alice"}
			},
			sender:    "alice",
			recipient: "bob",
			wantErr:   ErrAlreadyFriends,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := newMemoryDirectory("alice", "bob")
			engine := NewEngine(dir)
			if tc.prepare != nil {
				tc.prepare(dir, engine)
			}

			if _, err := engine.SendRequest(ctx, tc.sender, tc.recipient); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEngineSendRequestKeepsSingleEntry(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := engine.SendRequest(ctx, "alice", "bob"); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}

	bob := dir.mustFind(t, "bob")
	count := 0
	for _, id := range bob.PendingFriendRequests {
		if id == "alice" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected alice to appear exactly once, got %d", count)
	}
}

func TestEngineAcceptMirrorsFriendship(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionAccept); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	alice := dir.mustFind(t, "alice")
	bob := dir.mustFind(t, "bob")

	if !alice.IsFriendsWith("bob") || !bob.IsFriendsWith("alice") {
		t.Fatalf("expected mirrored friendship, alice=%v bob=%v", alice.Friends, bob.Friends)
	}

	if len(bob.PendingFriendRequests) != 0 {
		t.Fatalf("expected pending list to be emptied, got %v", bob.PendingFriendRequests)
	}

	// The pair is now terminal for the request path.
	if _, err := engine.SendRequest(ctx, "alice", "bob"); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends after acceptance, got %v", err)
	}
}

func TestEngineAcceptRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Fail the second friend write, after the pending entry was pulled and
	// the recipient side was friended inside the transaction.
	dir.failAppendFriendFor = "alice"

	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionAccept); err == nil {
		t.Fatalf("expected accept to fail")
	}

	alice := dir.mustFind(t, "alice")
	bob := dir.mustFind(t, "bob")

	if alice.IsFriendsWith("bob") || bob.IsFriendsWith("alice") {
		t.Fatalf("expected no friendship after rollback, alice=%v bob=%v", alice.Friends, bob.Friends)
	}

	if !bob.HasPendingRequestFrom("alice") {
		t.Fatalf("expected pending request to survive rollback, got %v", bob.PendingFriendRequests)
	}

	// Retrying after the fault clears succeeds on the restored state.
	dir.failAppendFriendFor = ""
	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionAccept); err != nil {
		t.Fatalf("accept after rollback: %v", err)
	}
}

func TestEngineDecline(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionDecline); err != nil {
		t.Fatalf("decline request: %v", err)
	}

	bob := dir.mustFind(t, "bob")
	if len(bob.PendingFriendRequests) != 0 {
		t.Fatalf("expected pending list to be emptied, got %v", bob.PendingFriendRequests)
	}
	if len(bob.Friends) != 0 {
		t.Fatalf("decline must never touch friends, got %v", bob.Friends)
	}

	// A second decline finds nothing to remove.
	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionDecline); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound on repeat decline, got %v", err)
	}
}

func TestEngineRespondValidation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		recipient string
		sender    string
		action    string
		wantErr   error
	}{
		{"invalid action", "bob", "alice", "maybe", ErrInvalidAction},
		{"empty action", "bob", "alice", "", ErrInvalidAction},
		{"unknown recipient", "ghost", "alice", ActionAccept, ErrMemberNotFound},
		{"unknown sender", "bob", "ghost", ActionAccept, ErrMemberNotFound},
		{"no pending request", "bob", "alice", ActionAccept, ErrRequestNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(newMemoryDirectory("alice", "bob"))
			if err := engine.RespondToRequest(ctx, tc.recipient, tc.sender, tc.action); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEngineListPendingRequests(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob", "carol")
	engine := NewEngine(dir)

	for _, sender := range []string{"alice", "carol"} {
		if _, err := engine.SendRequest(ctx, sender, "bob"); err != nil {
			t.Fatalf("send request from %s: %v", sender, err)
		}
	}

	pending, err := engine.ListPendingRequests(ctx, "bob")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}

	if len(pending) != 2 {
		t.Fatalf("expected 2 pending senders, got %d", len(pending))
	}

	for _, sender := range pending {
		if sender.Username == "" || sender.FirstName == "" {
			t.Fatalf("expected resolved sender record, got %+v", sender)
		}
	}
}

func TestEngineListDropsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	delete(dir.members, "alice")

	pending, err := engine.ListPendingRequests(ctx, "bob")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected dangling sender to be dropped, got %+v", pending)
	}
}

func TestEngineRemoveFriend(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionAccept); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	if err := engine.RemoveFriend(ctx, "alice", "bob"); err != nil {
		t.Fatalf("remove friend: %v", err)
	}

	alice := dir.mustFind(t, "alice")
	bob := dir.mustFind(t, "bob")
	if alice.IsFriendsWith("bob") || bob.IsFriendsWith("alice") {
		t.Fatalf("expected edge removed from both records, alice=%v bob=%v", alice.Friends, bob.Friends)
	}

	if err := engine.RemoveFriend(ctx, "alice", "bob"); !errors.Is(err, ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends on repeat removal, got %v", err)
	}
}

func TestEngineListFriends(t *testing.T) {
	ctx := context.Background()
	dir := newMemoryDirectory("alice", "bob")
	engine := NewEngine(dir)

	if _, err := engine.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := engine.RespondToRequest(ctx, "bob", "alice", ActionAccept); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	friends, err := engine.ListFriends(ctx, "alice")
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != "bob" {
		t.Fatalf("unexpected friends list: %+v", friends)
	}
}
