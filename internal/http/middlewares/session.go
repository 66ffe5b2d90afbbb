package middlewares

import (
	"net/http"
	"strings"

	"github.com/agrotm/accessguard/internal/http/errors"
)

// SessionValidator valida un token de sesión y retorna el principal.
type SessionValidator func(token string) (principalID string, valid bool)

// WithSession exige una sesión válida. El token se acepta por header
// Authorization: Bearer o por cookie. Sesión ausente y expirada devuelven
// la misma respuesta: no filtramos cuál de las dos fue.
func WithSession(validate SessionValidator, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractSessionToken(r, cookieName)
			if token == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			principal, ok := validate(token)
			if !ok {
				errors.WriteError(w, errors.ErrSessionExpired)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = WithSessionToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractSessionToken(r *http.Request, cookieName string) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}
