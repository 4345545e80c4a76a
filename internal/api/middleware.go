package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"hr-admin-api/internal/auth"
	"hr-admin-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userContextKey = contextKey("user")

// RequireRoles gates a route behind bearer-token authentication plus an
// allow-list of roles. An empty list admits any authenticated user. The gate
// runs before the handler and never reads the request body.
func (s *Server) RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || headerParts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := auth.VerifyJWT(headerParts[1], s.config.JWT.Secret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					respondError(w, http.StatusUnauthorized, "Your session has expired. Please log in again.")
					return
				}
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				respondError(w, http.StatusForbidden, "Access denied")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}
