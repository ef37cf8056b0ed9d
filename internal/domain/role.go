package domain

// Role identifies which side of a transaction an actor is on. Buyer and
// supplier are determined per entity by comparing the acting user against
// the entity's parties; admin comes from the access token.
type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleSupplier Role = "SUPPLIER"
	RoleAdmin    Role = "ADMIN"
)

// Counterpart returns the opposite trading role. Admin has no counterpart.
func (r Role) Counterpart() Role {
	switch r {
	case RoleBuyer:
		return RoleSupplier
	case RoleSupplier:
		return RoleBuyer
	}
	return r
}
