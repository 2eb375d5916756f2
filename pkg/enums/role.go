package enums

// Role maps to the user_role enum in Postgres.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleViewer     Role = "viewer"
	RoleEditor     Role = "editor"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roles = newSet("role", RoleCustomer, RoleViewer, RoleEditor, RoleModerator, RoleAdmin, RoleSuperAdmin)

// staffRank orders the admin hierarchy. Customers are not ranked.
var staffRank = map[Role]int{
	RoleViewer:     1,
	RoleEditor:     2,
	RoleModerator:  3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known role.
func (r Role) IsValid() bool { return roles.has(r) }

// IsStaff reports whether the role belongs to the admin hierarchy.
func (r Role) IsStaff() bool {
	_, ok := staffRank[r]
	return ok
}

// AtLeast reports whether r sits at or above min in the admin hierarchy.
func (r Role) AtLeast(min Role) bool {
	have, ok := staffRank[r]
	if !ok {
		return false
	}
	want, ok := staffRank[min]
	if !ok {
		return false
	}
	return have >= want
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return roles.parse(value)
}
