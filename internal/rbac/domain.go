package rbac

import "strings"

// Role is one of the fixed set of roles known to the application.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleGeneralDirector   Role = "GENERAL_DIRECTOR"
	RoleServiceManager    Role = "SERVICE_MANAGER"
	RoleEmployee          Role = "EMPLOYEE"
	RoleAccountant        Role = "ACCOUNTANT"
	RolePurchasingManager Role = "PURCHASING_MANAGER"
)

// AllRoles enumerates every role variant. The set is closed; iterating this
// slice replaces any dynamic discovery of roles.
var AllRoles = []Role{
	RoleAdmin,
	RoleGeneralDirector,
	RoleServiceManager,
	RoleEmployee,
	RoleAccountant,
	RolePurchasingManager,
}

// ParseRole maps a stored string onto a known role.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, role := range AllRoles {
		if role == candidate {
			return role, true
		}
	}
	return "", false
}

// Valid reports whether the role belongs to the known set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Permission represents an atomic capability from the catalog. Category and
// Action are parsed from the stored name once at catalog load so that policy
// matching is a field comparison rather than repeated string surgery.
type Permission struct {
	ID       int64
	Name     string
	Category string
	Action   string
}

// SplitPermissionName separates a catalog name of the shape category.action.
// The category is everything before the first dot; the action is the rest, so
// multi-segment suffixes like "ap.read" stay intact.
func SplitPermissionName(name string) (category, action string, ok bool) {
	category, action, ok = strings.Cut(name, ".")
	if !ok || category == "" || action == "" {
		return "", "", false
	}
	return category, action, true
}

// RolePermission binds a role to a catalog permission.
type RolePermission struct {
	Role         Role
	PermissionID int64
}
