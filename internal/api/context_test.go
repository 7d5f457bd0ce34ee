package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticUser string

func (s staticUser) CurrentUserID() string { return string(s) }

// TestWithUserID_RoundTrip verifies the user id can be added and extracted from context.
func TestWithUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")

	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("UserIDFromContext = %q, want %q", got, "user-1")
	}
}

// TestUserIDFromContext_Missing verifies empty id when none was attached.
func TestUserIDFromContext_Missing(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("UserIDFromContext = %q, want empty", got)
	}
}

// TestUserMiddleware_AttachesCurrentUser verifies handlers see the session's user.
func TestUserMiddleware_AttachesCurrentUser(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	})

	h := UserMiddleware(staticUser("user-42"))(next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	if seen != "user-42" {
		t.Errorf("user id = %q, want %q", seen, "user-42")
	}
}
