package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type Middleware struct {
	tokens  *TokenIssuer
	revoker Revoker
	rs      *httpx.Responder
	logger  *slog.Logger
}

func NewMiddleware(tokens *TokenIssuer, revoker Revoker, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens:  tokens,
		revoker: revoker,
		rs:      httpx.NewResponder(logger),
		logger:  logger,
	}
}

// Authenticate requires a valid, unrevoked "Authorization: Bearer" token and
// puts the caller's Identity on the request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			m.rs.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}

		id, err := m.tokens.Parse(token)
		if err != nil {
			m.rs.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}

		revoked, err := m.revoker.IsRevoked(r.Context(), id.TokenID)
		if err != nil {
			m.rs.Internal(w, "failed to check token revocation", err, "user_id", id.UserID)
			return
		}
		if revoked {
			m.rs.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// RequireAdmin authenticates and then rejects non-admin callers with 403.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		if !id.IsAdmin() {
			m.rs.Error(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

// UserKey keys rate limiters by user id, falling back to client IP.
func UserKey(r *http.Request) string {
	if id, ok := FromContext(r.Context()); ok {
		return "user:" + id.UserID
	}
	return "ip:" + httpx.ClientIP(r)
}
