package middleware

import (
	"net/http"

	"github.com/mikanbako/pocketquest/internal/auth"
)

const SessionCookieName = "pocketquest_session"

// RequireAuth validates the session cookie and populates AuthContext.
// The token carries user, family and role, so no store lookup is needed here.
func RequireAuth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			ac, err := issuer.Parse(cookie.Value)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent checks that the authenticated user has the parent role.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			http.Error(w, `{"error":"parent role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
}
