package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/membernet/backend/internal/friends"
	"github.com/membernet/backend/internal/logging"
	"github.com/membernet/backend/internal/middleware"
)

// FriendHandler exposes the friend-relationship engine over HTTP. All routes
// require a verified caller; the sender of a request is always the caller
// identity, never an id taken from the payload.
type FriendHandler struct {
	Friends FriendService
}

// SendRequest handles POST /api/v1/friend-requests.
func (h FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req sendFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend request payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "recipient is required"})
		return
	}

	recipient, err := h.Friends.SendRequest(ctx, callerID, req.Recipient)
	if err != nil {
		h.respondFriendError(w, r, err, "send friend request failed")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, sendFriendResponse{
		Recipient:             projectMember(recipient),
		PendingFriendRequests: recipient.PendingFriendRequests,
	})
}

// ListPending handles GET /api/v1/friend-requests/pending.
func (h FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Friends == nil {
		logging.FromContext(ctx).Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	senders, err := h.Friends.ListPendingRequests(ctx, callerID)
	if err != nil {
		h.respondFriendError(w, r, err, "list pending requests failed")
		return
	}

	respondJSON(ctx, w, http.StatusOK, listMembersResponse{Members: projectMembers(senders)})
}

// ListFriends handles GET /api/v1/friends.
func (h FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Friends == nil {
		logging.FromContext(ctx).Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	members, err := h.Friends.ListFriends(ctx, callerID)
	if err != nil {
		h.respondFriendError(w, r, err, "list friends failed")
		return
	}

	respondJSON(ctx, w, http.StatusOK, listMembersResponse{Members: projectMembers(members)})
}

// Respond handles PATCH /api/v1/friend-requests/{senderId}.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	senderID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/friend-requests/"), "/")
	if senderID == "" {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "sender id is required"})
		return
	}

	var req respondFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Friends.RespondToRequest(ctx, callerID, senderID, req.Action); err != nil {
		h.respondFriendError(w, r, err, "respond to friend request failed")
		return
	}

	message := "Friend request declined"
	if req.Action == friends.ActionAccept {
		message = "Friend request accepted"
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": message})
}

// Unfriend handles DELETE /api/v1/friends/{friendId}.
func (h FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Friends == nil {
		logging.FromContext(ctx).Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	friendID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/friends/"), "/")
	if friendID == "" {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "friend id is required"})
		return
	}

	if err := h.Friends.RemoveFriend(ctx, callerID, friendID); err != nil {
		h.respondFriendError(w, r, err, "remove friend failed")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": "Friend removed"})
}

func (h FriendHandler) respondFriendError(w http.ResponseWriter, r *http.Request, err error, logMessage string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	switch {
	case errors.Is(err, friends.ErrMemberNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "member not found"})
	case errors.Is(err, friends.ErrRequestNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "friend request not found"})
	case errors.Is(err, friends.ErrDuplicateRequest):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "friend request already pending"})
	case errors.Is(err, friends.ErrAlreadyFriends):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "members are already friends"})
	case errors.Is(err, friends.ErrNotFriends):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "friendship not found"})
	case errors.Is(err, friends.ErrSelfRelation):
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "cannot befriend yourself"})
	case errors.Is(err, friends.ErrInvalidAction):
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "action must be accept or decline"})
	default:
		logger.Error(logMessage, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend operation failed"})
	}
}

type sendFriendRequest struct {
	Recipient string `json:"recipient"`
}

type sendFriendResponse struct {
	Recipient             memberView `json:"recipient"`
	PendingFriendRequests []string   `json:"pendingFriendRequests"`
}

type respondFriendRequest struct {
	Action string `json:"action"`
}

type listMembersResponse struct {
	Members []memberView `json:"members"`
}
