package enums

import "fmt"

// ActorRole identifies who is performing an operation.
type ActorRole string

const (
	ActorRoleRenter ActorRole = "renter"
	ActorRoleStaff  ActorRole = "staff"
	ActorRoleAdmin  ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleRenter,
	ActorRoleStaff,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role carries staff privileges.
func (a ActorRole) IsStaff() bool {
	return a == ActorRoleStaff || a == ActorRoleAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
