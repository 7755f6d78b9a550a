package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// SessionFromContext returns the session the middleware attached, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// ContextWithSession returns a context carrying the session.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Middleware validates a Bearer token and attaches the Session to the
// request context. Requests without a valid token are rejected with 401.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			session, err := issuer.Verify(token)
			if err != nil {
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireDoctor rejects sessions that do not carry the doctor role. It must
// run inside Middleware.
func RequireDoctor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		if !session.IsDoctor() {
			http.Error(w, "Doctor role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
