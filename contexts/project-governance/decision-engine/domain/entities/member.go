package entities

import "strings"

// Member is one row of the live membership snapshot supplied by the
// membership resolver. Eligible reflects active project membership at the
// moment of evaluation.
type Member struct {
	UserID   string
	Eligible bool
}

type Role string

const (
	RoleInvestor   Role = "investor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Privileged reports whether the role bypasses project membership when
// voting. New administrator tiers extend this switch, not call sites.
func (r Role) Privileged() bool {
	switch Role(strings.ToLower(strings.TrimSpace(string(r)))) {
	case RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
