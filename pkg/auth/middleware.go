package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
)

// AdminOnly denies access unless the verified token carries the admin flag.
// It must run after jwtauth.Verifier and jwtauth.Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			slog.Error("Failed to get token claims from context", "err", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		isAdmin, _ := claims["tavern_admin"].(bool)
		if !isAdmin {
			slog.Warn("Non-admin attempted to access admin-only resource", "sub", claims["sub"])
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
