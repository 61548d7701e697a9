package auth

// Role names an access level carried in the token claims.
type Role string

// Viewers read summaries, predictions, and exports. Operators may also fire
// the billing, forecast, and reconcile runs. Admin is reserved for future
// configuration endpoints and outranks both.
const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// NormalizeRole maps a claim string onto a known role. Unknown strings are
// rejected rather than treated as viewer.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleOperator, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role meets or outranks required.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
