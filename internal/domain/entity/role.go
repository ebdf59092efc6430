package entity

// Role ID constants carried in access token claims
const (
	RoleIDAdmin    = 1
	RoleIDStaff    = 2
	RoleIDCustomer = 3
)

// RoleNames constants
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// RoleIDByName maps a role name to its ID, 0 when unknown
func RoleIDByName(name string) int {
	switch name {
	case RoleAdmin:
		return RoleIDAdmin
	case RoleStaff:
		return RoleIDStaff
	case RoleCustomer:
		return RoleIDCustomer
	}
	return 0
}
