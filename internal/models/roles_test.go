package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"SuperAdmin", "Admin", "User"} {
		role, err := ParseRole(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, role.String())
	}

	for _, invalid := range []string{"", "superadmin", "root", "Moderator"} {
		_, err := ParseRole(invalid)
		assert.Error(t, err, "role %q should be rejected", invalid)
	}
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleSuperAdmin.AtLeast(RoleUser))
	assert.True(t, RoleAdmin.AtLeast(RoleUser))
	assert.False(t, RoleAdmin.AtLeast(RoleSuperAdmin))
	assert.False(t, RoleUser.AtLeast(RoleAdmin))
	assert.True(t, RoleUser.AtLeast(RoleUser))
}

func TestRoleIsPrivileged(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsPrivileged())
	assert.True(t, RoleAdmin.IsPrivileged())
	assert.False(t, RoleUser.IsPrivileged())
	assert.False(t, Role("bogus").IsPrivileged())
}
