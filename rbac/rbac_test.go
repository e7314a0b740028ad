package rbac_test

import (
	"testing"

	"github.com/rbacadmin/rbac-console/internal/utils"
	"github.com/rbacadmin/rbac-console/rbac"
	"github.com/stretchr/testify/require"
)

func testUser() *rbac.User {
	return &rbac.User{
		ID:        "user-1",
		Email:     "john.doe@example.com",
		FirstName: "John",
		LastName:  "Doe",
		IsActive:  true,
		Roles: []rbac.Role{
			{
				ID:   "role-1",
				Name: "user_manager",
				Permissions: []rbac.Permission{
					{Resource: "user", Action: "create"},
					{Resource: "user", Action: "read"},
				},
				IsActive: true,
			},
		},
	}
}

func TestHasPermission(t *testing.T) {
	user := testUser()

	require.True(t, user.HasPermission("user", "create"))
	require.True(t, user.HasPermission("user", "read"))
	require.False(t, user.HasPermission("user", "delete"))
	require.False(t, user.HasPermission("role", "create"))
}

func TestHasPermissionNilUser(t *testing.T) {
	var user *rbac.User
	require.False(t, user.HasPermission("user", "read"))
	require.False(t, user.HasPermission("system", "manage"))
}

func TestHasPermissionManageWildcard(t *testing.T) {
	user := &rbac.User{
		Roles: []rbac.Role{
			{
				Name:        "sysadmin",
				Permissions: []rbac.Permission{{Resource: "system", Action: rbac.ActionManage}},
			},
		},
	}

	for _, action := range []string{"create", "read", "update", "delete", "export"} {
		require.True(t, user.HasPermission("system", action), "action %q", action)
	}
	// The wildcard is scoped to its resource.
	require.False(t, user.HasPermission("user", "read"))
}

func TestHasRole(t *testing.T) {
	user := testUser()
	require.True(t, user.HasRole("user_manager"))
	require.False(t, user.HasRole("auditor"))

	var nilUser *rbac.User
	require.False(t, nilUser.HasRole("user_manager"))
}

func TestApplyMergesOnlyNonNilFields(t *testing.T) {
	user := testUser()

	user.Apply(rbac.UserUpdate{
		FirstName: utils.Ptr("Jane"),
		IsActive:  utils.Ptr(false),
	})

	require.Equal(t, "Jane", user.FirstName)
	require.Equal(t, "Doe", user.LastName)
	require.Equal(t, "john.doe@example.com", user.Email)
	require.False(t, user.IsActive)
}

func TestFullName(t *testing.T) {
	user := testUser()
	require.Equal(t, "John Doe", user.FullName())

	require.Equal(t, "Doe", (&rbac.User{LastName: "Doe"}).FullName())
	require.Equal(t, "John", (&rbac.User{FirstName: "John"}).FullName())
}
