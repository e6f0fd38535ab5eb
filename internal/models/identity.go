package models

import (
	"context"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// Identity is the authenticated caller as reported by the identity provider.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return HasRole(i.Roles, RoleAdmin)
}

// HasRole проверяет, есть ли у пользователя указанная роль.
func HasRole(userRoles []string, targetRole string) bool {
	for _, role := range userRoles {
		if role == targetRole {
			return true
		}
	}
	return false
}

type contextKey string

// IdentityContextKey хранит Identity в context.Context и в gin.Context.
const IdentityContextKey contextKey = "identity"

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// IdentityFromContext извлекает Identity из контекста.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(Identity)
	return id, ok
}
