package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vikal-platform/vikal/internal/api"
	"github.com/vikal-platform/vikal/internal/study"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// AdminKeyHeader carries the shared operator key on admin routes.
const AdminKeyHeader = "X-Admin-Key"

func Middleware(jwt *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwt.ValidateAccessToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware admits requests that present the configured admin key.
// An empty key disables the admin routes entirely.
func AdminMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				api.HandleError(w, api.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// IdentityFrom returns the caller's identity, or false when the request
// was not authenticated.
func IdentityFrom(ctx context.Context) (study.Identity, bool) {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return study.Identity{}, false
	}
	return study.Identity{UserID: claims.UserID, Email: claims.Email}, true
}

// UserSubject keys per-user limits on the authenticated user ID.
func UserSubject(r *http.Request) (string, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// WithIdentity is used by tests and internal callers to attach an identity
// without a token.
func WithIdentity(ctx context.Context, id study.Identity) context.Context {
	return context.WithValue(ctx, UserClaimsKey, &AccessClaims{UserID: id.UserID, Email: id.Email})
}
