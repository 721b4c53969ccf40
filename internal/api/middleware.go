package api

import (
	"context"
	"net/http"
	"strings"

	"mealtrack/internal/auth"
	"mealtrack/internal/models"
)

type contextKey string

const userKey contextKey = "user"

// requireSession authenticates the bearer token and renews its session
// before passing the request on.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if header == "" || (found && strings.TrimSpace(token) == "") {
			s.writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		if !found {
			s.writeError(w, r, auth.ErrForbidden)
			return
		}

		u, err := s.authn.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user authenticated for the request.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}
