package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "USER"
	// RoleAdmin can access administrative resources
	RoleAdmin UserRole = "ADMIN"
)

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// RoleAtLeast checks if role meets the minimum required level
func RoleAtLeast(role, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}

	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// Authorize is the authorization predicate evaluated before protected
// handlers run: the caller's resolved role must satisfy the required role.
func Authorize(role, required UserRole) bool {
	if required == "" {
		return true
	}
	return RoleAtLeast(role, required)
}
