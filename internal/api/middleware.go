package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{ name string }

var userIDKey = contextKey{"user-id"}

// userID returns the authenticated user attached by requireAuth.
func userID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// requireAuth validates the bearer token and threads the user identity
// through the request context. Missing token is 401, a bad or expired
// one is 403.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		id, err := a.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			respondError(w, http.StatusForbidden, errors.New("invalid or expired token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}
