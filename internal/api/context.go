package api

import (
	"context"
	"net/http"
)

// userIDContextKey is the context key for the signed-in user id.
type userIDContextKey struct{}

// UserResolver reports the signed-in user, or "" when signed out.
type UserResolver interface {
	CurrentUserID() string
}

// WithUserID returns a new context with the user id attached.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}

// UserIDFromContext extracts the user id from the context.
// Returns "" if not present.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey{}).(string)
	return id
}

// UserMiddleware attaches the current user id to the request context.
func UserMiddleware(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithUserID(r.Context(), users.CurrentUserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
