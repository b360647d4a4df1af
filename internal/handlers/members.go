package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/membernet/backend/internal/logging"
	"github.com/membernet/backend/internal/middleware"
	"github.com/membernet/backend/internal/repositories"
)

const maxAvatarBytes = 5 << 20

// MemberHandler exposes member profile endpoints.
type MemberHandler struct {
	Members MemberStore
	Avatars AvatarStorage
	NowFunc func() time.Time
}

// Get handles GET /api/v1/members/{id}, returning the public projection.
func (h MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Members == nil {
		logging.FromContext(ctx).Error("member store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member services unavailable"})
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/members/"), "/")
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "member id is required"})
		return
	}

	member, err := h.Members.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		logging.FromContext(ctx).Error("member lookup failed", "memberId", id, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member lookup failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, projectMember(member))
}

// Search handles GET /api/v1/members/search?q= for search-as-you-type lookups.
func (h MemberHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Members == nil {
		logging.FromContext(ctx).Error("member store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member services unavailable"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	members, err := h.Members.Search(ctx, query, 20)
	if err != nil {
		logging.FromContext(ctx).Error("member search failed", "query", query, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member search failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, listMembersResponse{Members: projectMembers(members)})
}

// UpdateProfile handles PATCH /api/v1/members/me.
func (h MemberHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Members == nil {
		logger.Error("member store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	member, err := h.Members.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		logger.Error("member lookup failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member lookup failed"})
		return
	}

	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if len(name) < 2 || len(name) > 50 {
			respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "first name must be between 2 and 50 characters"})
			return
		}
		member.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if len(name) < 2 || len(name) > 50 {
			respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "last name must be between 2 and 50 characters"})
			return
		}
		member.LastName = name
	}

	member.UpdatedAt = h.now()
	if err := h.Members.UpdateProfile(ctx, member); err != nil {
		logger.Error("profile update failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile update failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, projectMember(member))
}

// ChangePassword handles PATCH /api/v1/members/me/password.
func (h MemberHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Members == nil {
		logger.Error("member store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.NewPassword) < 6 || len(req.NewPassword) > 50 {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "password must be between 6 and 50 characters"})
		return
	}

	member, err := h.Members.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		logger.Error("member lookup failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "member lookup failed"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.OldPassword)); err != nil {
		logger.Warn("password change rejected", "memberId", callerID)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	if err := h.Members.UpdatePassword(ctx, callerID, string(hashed)); err != nil {
		logger.Error("password update failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "password update failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// UploadAvatar handles POST /api/v1/members/me/avatar.
func (h MemberHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Members == nil || h.Avatars == nil {
		logger.Error("avatar dependencies unavailable", "hasMembers", h.Members != nil, "hasAvatars", h.Avatars != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "avatar services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		logger.Warn("invalid avatar upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "photo file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "photo must be an image"})
		return
	}

	key := path.Join("avatars", callerID+strings.ToLower(path.Ext(header.Filename)))
	location, err := h.Avatars.Save(ctx, key, contentType, file)
	if err != nil {
		logger.Error("avatar upload failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "avatar upload failed"})
		return
	}

	if err := h.Members.SetAvatarURL(ctx, callerID, location); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		logger.Error("record avatar url failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "avatar update failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"avatarUrl": location})
}

func (h MemberHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
