package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleOwner runs their own campaign and wallet.
	RoleOwner = "owner"
	// RoleAnalyst may read reports and status but not start or stop dialing.
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
	RoleSupport    = "support" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleSupport }
