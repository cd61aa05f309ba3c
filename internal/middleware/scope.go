package middleware

import (
	"fmt"
	"net/http"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/model"
)

// RequireScope returns middleware that enforces scope requirements.
// Must be applied after Auth. Any one of required is sufficient, and the
// admin scope satisfies everything.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeAuthError(w)
				return
			}

			for _, scope := range required {
				if authCtx.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("Insufficient permissions. Required scope: %s", required[0]))
		})
	}
}

// RequireRead is a convenience middleware for read scope.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireWrite is a convenience middleware for write scope.
func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeWrite)
}

// RequireAdmin is a convenience middleware for admin scope.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}

// RequireMethodScope requires read for safe methods and write otherwise.
func RequireMethodScope() func(http.Handler) http.Handler {
	read, write := RequireRead(), RequireWrite()
	return func(next http.Handler) http.Handler {
		readNext, writeNext := read(next), write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}
