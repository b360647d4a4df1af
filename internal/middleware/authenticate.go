package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/membernet/backend/internal/logging"
)

type identityKey struct{}

// SessionVerifier resolves a bearer access token to a member identifier.
type SessionVerifier interface {
	Verify(ctx context.Context, accessToken string) (string, error)
}

// VerifiedMemberID returns the caller identity attached by Authenticate, or
// the empty string when the request was not authenticated.
func VerifiedMemberID(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey{}).(string); ok {
		return id
	}
	return ""
}

// WithVerifiedMemberID attaches a caller identity to the context. Exposed
// for handler tests.
func WithVerifiedMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, identityKey{}, memberID)
}

// Authenticate verifies the bearer token on each request and attaches the
// resolved member id to the request context. Requests without a valid token
// are rejected with 401 before reaching the handler.
func Authenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			memberID, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				unauthorized(w)
				return
			}

			ctx := WithVerifiedMemberID(r.Context(), memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
