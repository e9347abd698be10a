package shared

import (
	"context"
	"strings"
)

// Role is the fixed set of principal roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
	RoleBuyer    Role = "buyer"
)

// AllRoles lists every known role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleAgent, RoleLandlord, RoleTenant, RoleBuyer}
}

// ParseRole normalises a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllRoles() {
		if role == known {
			return role, true
		}
	}
	return "", false
}

// Identity is the verified principal attached to a request.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// IsAdmin reports whether the identity holds the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	return id, true
}
