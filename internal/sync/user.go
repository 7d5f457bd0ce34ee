package sync

import (
	"context"
	"errors"
)

// ErrUserChanged is returned when work started for one user would run
// after another user signed in.
var ErrUserChanged = errors.New("signed-in user changed")

type userContextKey struct{}

// WithUser pins ctx to userID. Remote gateways refuse to act for any
// other signed-in user.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserFromContext returns the user pinned by WithUser, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userContextKey{}).(string)
	return uid, ok
}
