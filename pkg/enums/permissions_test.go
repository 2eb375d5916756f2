package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHierarchyIsCumulative(t *testing.T) {
	ordered := []Role{RoleViewer, RoleEditor, RoleModerator, RoleAdmin, RoleSuperAdmin}
	for i := 1; i < len(ordered); i++ {
		lower := PermissionsFor(ordered[i-1])
		higher := PermissionsFor(ordered[i])
		for _, perm := range lower {
			assert.Contains(t, higher, perm, "%s should inherit %s from %s", ordered[i], perm, ordered[i-1])
		}
		assert.Greater(t, len(higher), len(lower))
	}
}

func TestCustomerHasNoAdminPermissions(t *testing.T) {
	assert.Empty(t, PermissionsFor(RoleCustomer))
	assert.False(t, HasPermission(RoleCustomer, PermAdminAccess))
	assert.False(t, HasPermission(Role("ghost"), PermAdminAccess))
}

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermDashboardView, true},
		{RoleViewer, PermCatalogWrite, false},
		{RoleEditor, PermCatalogWrite, true},
		{RoleEditor, PermReviewsModerate, false},
		{RoleModerator, PermMessagesManage, true},
		{RoleModerator, PermOrdersManage, false},
		{RoleAdmin, PermUsersManage, true},
		{RoleAdmin, PermRolesGrantAdmin, false},
		{RoleSuperAdmin, PermRolesGrantAdmin, true},
		{RoleSuperAdmin, Permission("unknown"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasPermission(tc.role, tc.perm), "%s/%s", tc.role, tc.perm)
	}
}

func TestPermissionMatrixCoversRoles(t *testing.T) {
	matrix := PermissionMatrix()
	require.Len(t, matrix, 6)
	assert.Len(t, matrix[RoleSuperAdmin], 10)
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusProcessing.Cancellable())
	assert.False(t, OrderStatusShipped.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())

	assert.True(t, OrderStatusPending.CanAdvanceTo(OrderStatusProcessing))
	assert.True(t, OrderStatusShipped.CanAdvanceTo(OrderStatusDelivered))
	assert.False(t, OrderStatusPending.CanAdvanceTo(OrderStatusDelivered))
	assert.False(t, OrderStatusCancelled.CanAdvanceTo(OrderStatusPending))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("moderator")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, role)
	assert.True(t, role.IsStaff())

	_, err = ParseRole("root")
	assert.Error(t, err)
}
