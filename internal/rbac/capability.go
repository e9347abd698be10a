// Package rbac consolidates role checks into named capability sets shared by
// the edge gate and the HTTP handlers.
package rbac

import (
	"sort"
	"strings"

	"github.com/propertyhub/propertyhub/internal/shared"
)

// Capability is a named set of roles allowed to perform an action.
type Capability struct {
	name  string
	roles map[shared.Role]struct{}
}

// Requires builds a capability satisfied by any of the given roles.
func Requires(name string, roles ...shared.Role) Capability {
	set := make(map[shared.Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Capability{name: name, roles: set}
}

// Name returns the capability name.
func (c Capability) Name() string {
	return c.name
}

// Allows reports whether role satisfies the capability.
func (c Capability) Allows(role shared.Role) bool {
	_, ok := c.roles[role]
	return ok
}

// Check returns nil when the identity satisfies the capability.
func (c Capability) Check(id shared.Identity) error {
	if id.UserID == 0 {
		return ErrUnauthenticated
	}
	if !c.Allows(id.Role) {
		return ErrForbidden
	}
	return nil
}

// String lists the roles in a stable order.
func (c Capability) String() string {
	names := make([]string, 0, len(c.roles))
	for r := range c.roles {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return c.name + "[" + strings.Join(names, ",") + "]"
}

// Platform capabilities.
var (
	// Authenticated is satisfied by every signed-in principal.
	Authenticated = Requires("authenticated", shared.AllRoles()...)
	// Dashboard grants access to the listing owner dashboard.
	Dashboard = Requires("dashboard", shared.RoleAgent, shared.RoleLandlord, shared.RoleAdmin)
	// ManageListings allows submitting and editing listings.
	ManageListings = Requires("listings.manage", shared.RoleAgent, shared.RoleLandlord, shared.RoleAdmin)
	// Administer grants every /admin operation.
	Administer = Requires("admin", shared.RoleAdmin)
)
