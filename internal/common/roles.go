package common

import "strings"

// Role identifies the privilege level of the party making a request.
type Role string

const (
	RoleClient     Role = "client"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	// RoleAnonymous is used for unauthenticated requests.
	RoleAnonymous Role = ""
)

// ParseRole maps a stored userType value onto a Role. Unknown values map to RoleAnonymous.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleClient:
		return RoleClient
	case RoleTechnician:
		return RoleTechnician
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

// IsPublic reports whether the role can be chosen at self-registration.
func (r Role) IsPublic() bool {
	return r == RoleClient || r == RoleTechnician
}

func (r Role) String() string {
	return string(r)
}
