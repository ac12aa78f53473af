package httpd

import (
	"net/http"
	"strings"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
)

// Authenticate requires a bearer token and stores the verified session in
// the request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		session, err := h.tokens.Verify(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := auth.SessionFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not logged in")
				return
			}

			for _, role := range roles {
				if session.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "this area is not available for your role")
		})
	}
}

// currentSession is only called behind Authenticate.
func currentSession(r *http.Request) *auth.Session {
	s, _ := auth.SessionFrom(r.Context())
	return s
}
