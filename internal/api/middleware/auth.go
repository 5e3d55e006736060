package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/guardian/internal/api"
)

type contextKey string

// ErrInvalidToken is returned by validators for unknown tokens.
var ErrInvalidToken = errors.New("invalid api token")

// TokenValidator checks a bearer token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) error
}

// StaticToken accepts exactly one configured token.
type StaticToken string

func (s StaticToken) ValidateToken(_ context.Context, token string) error {
	if s == "" || subtle.ConstantTimeCompare([]byte(s), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
// A nil validator lets every request through.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if err := validator.ValidateToken(r.Context(), token); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
