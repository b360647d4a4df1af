package models

import "time"

// Post is a piece of text content published by a member to their feed.
type Post struct {
	ID        string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated members.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
