package domain

// Role is the staff role carried by an authenticated caller
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleGuest   Role = "guest"
	// RoleSystem is used by scheduled jobs
	RoleSystem Role = "system"
)

// ParseRole maps a claim value to a role; unknown values become guest
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleStaff, RoleGuest:
		return r
	}
	return RoleGuest
}

// Actor is the verified identity performing an operation
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActor is the identity of the scheduled evaluation job
var SystemActor = Actor{ID: "system:evaluator", Role: RoleSystem}
