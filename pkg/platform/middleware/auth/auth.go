// Package auth turns the identity layer's bearer tokens into a caller in the
// request context. Dossier trusts the token's subject and role claims and
// performs no authentication of its own.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

// JWTValidator verifies a raw token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the part of a token the middleware reads.
type JWTClaims struct {
	UserID string
	Role   string
	JTI    string
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's user id and role for downstream handlers.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason string, attrs ...any) {
				logger.WarnContext(ctx, "unauthorized request",
					append([]any{"reason", reason, "path", r.URL.Path, "request_id", requestcontext.RequestID(ctx)}, attrs...)...)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid bearer token"))
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject("missing token")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid token", "error", err)
				return
			}
			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				reject("malformed subject", "jti", claims.JTI)
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only callers whose role claim equals role. It must run
// after RequireAuth.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != role {
				logger.WarnContext(ctx, "forbidden request",
					"required_role", role,
					"role", requestcontext.Role(ctx),
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, role+" role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
