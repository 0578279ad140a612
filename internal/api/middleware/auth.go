package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "hookbot/internal/api/context"
	"hookbot/internal/pkg/errors"
	"hookbot/internal/platform/auth"
)

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, errors.Unauthorized("Missing authorization header", ""))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, errors.Unauthorized("Invalid authorization header format", ""))
			return
		}

		claims, err := m.tokenSvc.ValidateToken(parts[1])
		if err != nil {
			errors.WriteError(w, errors.Unauthorized("Invalid or expired token", ""))
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole rejects callers whose token carries none of roles.
func RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if claims != nil {
				for _, role := range roles {
					if claims.Role == role {
						next(w, r)
						return
					}
				}
			}
			errors.WriteError(w, errors.Forbidden("Insufficient permissions", "This operation requires one of: "+strings.Join(roles, ", ")))
		}
	}
}
