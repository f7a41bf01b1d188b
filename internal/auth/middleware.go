package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
)

type sessionContextKey struct{}

// SessionFromContext returns the session stored by Authenticate.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok
}

func bearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Authenticate rejects requests without a live bearer session and stores the
// session and its actor in the request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrInvalidCredentials)
			return
		}
		sess, err := h.service.Session(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		ctx = shared.ContextWithActor(ctx, shared.Actor{Name: sess.Name, Email: sess.Email, Level: string(sess.Level)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin only lets admin actors through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "Alleen beheerders")
			return
		}
		next.ServeHTTP(w, r)
	})
}
