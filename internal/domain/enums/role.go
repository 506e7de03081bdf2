package enums

import "strings"

type Role string

const (
	RoleUser    Role = "USER"
	RoleOwner   Role = "OWNER"
	RoleSupport Role = "SUPPORT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOwner, RoleSupport:
		return true
	default:
		return false
	}
}

// ParseRole is case-insensitive; unknown roles map to USER.
func ParseRole(raw string) Role {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return RoleUser
	}
	return role
}
