package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/membernet/backend/internal/logging"
	"github.com/membernet/backend/internal/middleware"
	"github.com/membernet/backend/internal/models"
	"github.com/membernet/backend/internal/repositories"
)

const maxPostLength = 2000

// PostHandler provides endpoints for publishing and reading posts.
type PostHandler struct {
	Posts   PostStore
	NowFunc func() time.Time
}

// Create handles POST /api/v1/posts.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Posts == nil {
		logger.Error("post store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "post services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid post payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxPostLength {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": "post body must be between 1 and 2000 characters"})
		return
	}

	post := models.Post{
		ID:        uuid.NewString(),
		AuthorID:  callerID,
		Body:      req.Body,
		CreatedAt: h.now(),
	}

	if err := h.Posts.Create(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "author not found"})
			return
		}
		logger.Error("post creation failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "post creation failed"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, postResponse{Post: projectPost(post)})
}

// Feed handles GET /api/v1/posts/feed.
func (h PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Posts == nil {
		logging.FromContext(ctx).Error("post store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "post services unavailable"})
		return
	}

	callerID := middleware.VerifiedMemberID(ctx)
	if callerID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	posts, err := h.Posts.ListFeed(ctx, callerID)
	if err != nil {
		logging.FromContext(ctx).Error("feed query failed", "memberId", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "feed query failed"})
		return
	}

	views := make([]postView, 0, len(posts))
	for _, post := range posts {
		views = append(views, projectPost(post))
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Posts: views})
}

func (h PostHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type createPostRequest struct {
	Body string `json:"body"`
}

type postView struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func projectPost(post models.Post) postView {
	return postView{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Body:      post.Body,
		CreatedAt: post.CreatedAt,
	}
}

type postResponse struct {
	Post postView `json:"post"`
}

type feedResponse struct {
	Posts []postView `json:"posts"`
}
