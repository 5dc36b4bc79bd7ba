package server

import (
	"context"
	"net/http"

	"github.com/campushunt/treasurehunt/internal/auth"
)

type ctxKey int

const (
	ctxKeyAdmin ctxKey = iota
	ctxKeyTeam
)

func adminAuthMiddleware(d *deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			claims, err := d.Tokens.Parse(token, auth.RoleAdmin)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func teamAuthMiddleware(d *deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			claims, err := d.Tokens.Parse(token, auth.RoleTeam)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyTeam, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminFrom returns the authenticated admin's email.
func adminFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyAdmin).(string)
}

func teamFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyTeam).(string)
}
