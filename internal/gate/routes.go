// Package gate is the edge authorization layer that runs before routing.
package gate

import "strings"

// Class is the protection level of a path.
type Class int

const (
	ClassPublic Class = iota
	ClassAuthOnly
	ClassDashboard
	ClassAdmin
)

func (c Class) String() string {
	switch c {
	case ClassAuthOnly:
		return "auth_only"
	case ClassDashboard:
		return "dashboard"
	case ClassAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Routes lists path prefixes per class.
type Routes struct {
	Exempt    []string
	AuthOnly  []string
	Dashboard []string
	Admin     []string
}

// DefaultRoutes returns the platform path table.
func DefaultRoutes() Routes {
	return Routes{
		Exempt:    []string{"/static", "/healthz", "/metrics"},
		AuthOnly:  []string{"/login", "/register", "/forgot-password", "/reset-password"},
		Dashboard: []string{"/dashboard", "/api/dashboard", "/api/properties/mine"},
		Admin:     []string{"/admin", "/api/admin"},
	}
}

// IsExempt reports whether the gate skips path entirely.
func (r Routes) IsExempt(path string) bool {
	return matchAny(path, r.Exempt)
}

// Classify returns the first matching class, checked auth-only, dashboard, admin.
func (r Routes) Classify(path string) Class {
	switch {
	case matchAny(path, r.AuthOnly):
		return ClassAuthOnly
	case matchAny(path, r.Dashboard):
		return ClassDashboard
	case matchAny(path, r.Admin):
		return ClassAdmin
	default:
		return ClassPublic
	}
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

// matchPrefix matches whole path segments, so /administrator is not /admin.
func matchPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// IsAPI reports whether path is served as JSON.
func IsAPI(path string) bool {
	return matchPrefix(path, "/api")
}
