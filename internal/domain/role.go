package domain

// Role is the closed set of portal roles an identity can hold.
type Role string

const (
	RolePatient  Role = "PATIENT"
	RoleDoctor   Role = "DOCTOR"
	RolePharmacy Role = "PHARMACY"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every known role.
var Roles = []Role{RolePatient, RoleDoctor, RolePharmacy, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacy, RoleAdmin:
		return true
	default:
		return false
	}
}

// UsesOTP reports whether identities with this role sign in with a phone code.
func (r Role) UsesOTP() bool {
	return r == RolePatient || r == RolePharmacy
}

// UsesPassword reports whether identities with this role sign in with email and password.
func (r Role) UsesPassword() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// RoleSet is an allow-list of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}
