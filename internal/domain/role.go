package domain

// Role enumerates the fixed actor roles.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleTech   Role = "TECH"
	RoleClient Role = "CLIENT"
)

// RoleRecord is the persisted role reference row.
type RoleRecord struct {
	ID   string
	Name Role
}

// Valid reports whether the role belongs to the enumerated set.
// Matching is exact and case-sensitive.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTech, RoleClient:
		return true
	}
	return false
}
