// Package auth issues and checks bearer tokens and manages user accounts.
package auth

import (
	"context"
	"time"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

type contextKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID    string
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
