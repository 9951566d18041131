package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Strob0t/dexcache/internal/domain/user"
)

type identityCtxKey struct{}

// TokenValidator verifies a session token.
type TokenValidator interface {
	ValidateToken(token string) (*user.Identity, error)
}

const unauthorizedBody = `{"status":"error","message":"Authentication required"}`

// Auth returns middleware that requires a valid session token, taken from an
// "Authorization: Bearer" header or, failing that, the session cookie.
func Auth(v TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				unauthorized(w)
				return
			}

			id, err := v.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}

// WithIdentity stores the authenticated identity in ctx.
func WithIdentity(ctx context.Context, id *user.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *user.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*user.Identity)
	return id
}
