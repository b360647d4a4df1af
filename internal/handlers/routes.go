package handlers

import (
	"net/http"

	"github.com/membernet/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Routes that
// require a verified caller are wrapped with the authentication middleware.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Members: deps.Members, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	members := MemberHandler{Members: deps.Members, Avatars: deps.Avatars}
	friends := FriendHandler{Friends: deps.Friends}
	posts := PostHandler{Posts: deps.Posts}

	verified := middleware.Authenticate(deps.Verifier)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)

	mux.HandleFunc("/api/v1/members/search", members.Search)
	mux.Handle("/api/v1/members/me", verified(http.HandlerFunc(members.UpdateProfile)))
	mux.Handle("/api/v1/members/me/password", verified(http.HandlerFunc(members.ChangePassword)))
	mux.Handle("/api/v1/members/me/avatar", verified(http.HandlerFunc(members.UploadAvatar)))
	mux.HandleFunc("/api/v1/members/", members.Get)

	mux.Handle("/api/v1/friend-requests", verified(http.HandlerFunc(friends.SendRequest)))
	mux.Handle("/api/v1/friend-requests/pending", verified(http.HandlerFunc(friends.ListPending)))
	mux.Handle("/api/v1/friend-requests/", verified(http.HandlerFunc(friends.Respond)))
	mux.Handle("/api/v1/friends", verified(http.HandlerFunc(friends.ListFriends)))
	mux.Handle("/api/v1/friends/", verified(http.HandlerFunc(friends.Unfriend)))

	mux.Handle("/api/v1/posts", verified(http.HandlerFunc(posts.Create)))
	mux.Handle("/api/v1/posts/feed", verified(http.HandlerFunc(posts.Feed)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Members     MemberStore
	Sessions    SessionManager
	Verifier    middleware.SessionVerifier
	Friends     FriendService
	Posts       PostStore
	Avatars     AvatarStorage
	AuthLimiter RateLimiter
}
