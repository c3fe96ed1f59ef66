// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tenantcore/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// UserStore loads accounts for authenticated requests. The account is
// re-read on every request so staff/superuser grants made since the token
// was issued are visible immediately.
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Middleware authenticates bearer tokens when present. Both "Token <value>"
// and "Bearer <value>" prefixes are accepted. A missing header passes
// through unauthenticated; a present-but-invalid one is rejected, so a
// caller can never silently lose their identity.
func Middleware(tokens *TokenService, users UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := strings.TrimPrefix(strings.TrimPrefix(header, "Token "), "Bearer ")
			if tokenStr == header {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}

			userID, err := tokens.Validate(tokenStr)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := users.UserByID(r.Context(), userID)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects unauthenticated requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom extracts the authenticated account from context, or nil.
func UserFrom(ctx context.Context) *model.User {
	if u, ok := ctx.Value(userKey).(*model.User); ok {
		return u
	}
	return nil
}
