package models

import "fmt"

// Role is the closed set of privilege tiers. Privilege is totally ordered:
// SuperAdmin > Admin > User.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleUser       Role = "User"
)

// AllRoles lists every valid role, highest privilege first.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Level maps a role to its privilege rank. Unknown roles rank below User.
func (r Role) Level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// IsPrivileged reports whether the role is subject to admin-tier controls
// such as the login IP allow-list.
func (r Role) IsPrivileged() bool {
	return r.AtLeast(RoleAdmin)
}

func (r Role) String() string {
	return string(r)
}
