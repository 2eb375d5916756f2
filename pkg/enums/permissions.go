package enums

import "sort"

// Permission names a capability checked by admin routes.
type Permission string

const (
	PermAdminAccess     Permission = "admin.access"
	PermDashboardView   Permission = "dashboard.view"
	PermCatalogRead     Permission = "catalog.read"
	PermCatalogWrite    Permission = "catalog.write"
	PermReviewsModerate Permission = "reviews.moderate"
	PermMessagesManage  Permission = "messages.manage"
	PermOrdersManage    Permission = "orders.manage"
	PermUsersManage     Permission = "users.manage"
	PermSettingsManage  Permission = "settings.manage"
	PermRolesGrantAdmin Permission = "roles.grant_admin"
)

// minimumRole is the single source of truth for role permissions. A role holds
// a permission when it ranks at or above the listed role.
var minimumRole = map[Permission]Role{
	PermAdminAccess:     RoleViewer,
	PermDashboardView:   RoleViewer,
	PermCatalogRead:     RoleViewer,
	PermCatalogWrite:    RoleEditor,
	PermReviewsModerate: RoleModerator,
	PermMessagesManage:  RoleModerator,
	PermOrdersManage:    RoleAdmin,
	PermUsersManage:     RoleAdmin,
	PermSettingsManage:  RoleAdmin,
	PermRolesGrantAdmin: RoleSuperAdmin,
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	floor, ok := minimumRole[perm]
	if !ok {
		return false
	}
	return role.AtLeast(floor)
}

// PermissionsFor lists every permission role holds, sorted by name.
func PermissionsFor(role Role) []Permission {
	out := make([]Permission, 0, len(minimumRole))
	for perm := range minimumRole {
		if HasPermission(role, perm) {
			out = append(out, perm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionMatrix returns role → permissions for every known role.
func PermissionMatrix() map[Role][]Permission {
	matrix := make(map[Role][]Permission, len(roles.values))
	for _, role := range roles.values {
		matrix[role] = PermissionsFor(role)
	}
	return matrix
}
