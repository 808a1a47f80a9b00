package authz

import (
	"testing"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func identity(role models.UserRole, perms ...string) *Identity {
	return &Identity{UserID: "u-1", Role: role, Permissions: perms}
}

func TestEvaluate_NoIdentityDenied(t *testing.T) {
	decision := Evaluate(nil, nil, nil)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "authentication required", decision.DenyReason)
}

// The admin role bypasses both role and permission checks. This is a
// deliberate rule: any gated route is implicitly reachable by admins.
func TestEvaluate_AdminBypassesAllChecks(t *testing.T) {
	admin := identity(models.RoleAdmin)

	cases := []struct {
		name  string
		roles []models.UserRole
		perms []string
	}{
		{"no requirements", nil, nil},
		{"role requirement excluding admin", []models.UserRole{models.RoleTechnician}, nil},
		{"permission admin does not hold", nil, []string{"inventory.write"}},
		{"both", []models.UserRole{models.RoleSales}, []string{"sales.refund"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Evaluate(admin, tc.roles, tc.perms)
			assert.True(t, decision.Allowed)
			assert.Equal(t, AllowAdminOverride, decision.Reason)
		})
	}
}

func TestEvaluate_RoleMembership(t *testing.T) {
	tech := identity(models.RoleTechnician)

	allowed := Evaluate(tech, []models.UserRole{models.RoleTechnician, models.RoleManager}, nil)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, AllowRoleMatch, allowed.Reason)

	denied := Evaluate(tech, []models.UserRole{models.RoleSales}, nil)
	assert.False(t, denied.Allowed)
	assert.Contains(t, denied.DenyReason, "sales", "denial must name the missing role")
}

func TestEvaluate_PermissionChecks(t *testing.T) {
	sales := identity(models.RoleSales, "sales.create", "customers.read")

	allowed := Evaluate(sales, nil, []string{"sales.create"})
	assert.True(t, allowed.Allowed)
	assert.Equal(t, AllowPermissionMatch, allowed.Reason)

	denied := Evaluate(sales, nil, []string{"sales.create", "sales.refund"})
	assert.False(t, denied.Allowed)
	assert.Contains(t, denied.DenyReason, "sales.refund", "denial must name the missing permission")
}

func TestEvaluate_AuthenticatedWhenNoRequirements(t *testing.T) {
	decision := Evaluate(identity(models.RoleFrontDesk), nil, nil)
	assert.True(t, decision.Allowed)
	assert.Equal(t, AllowAuthenticated, decision.Reason)
}

func TestEvaluate_RoleCheckedBeforePermissions(t *testing.T) {
	tech := identity(models.RoleTechnician, "devices.write")
	decision := Evaluate(tech, []models.UserRole{models.RoleManager}, []string{"devices.write"})
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.DenyReason, "manager")
}
