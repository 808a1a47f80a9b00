package scope

import (
	"testing"

	"github.com/fixpoint-io/fixpoint-api/internal/authz"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func admin() authz.Identity {
	return authz.Identity{UserID: "u-admin", Role: models.RoleAdmin}
}

func staff(locationID string) authz.Identity {
	ident := authz.Identity{UserID: "u-staff", Role: models.RoleTechnician}
	if locationID != "" {
		ident.LocationID = &locationID
	}
	return ident
}

func TestResolve_AdminDefaultsToAllLocations(t *testing.T) {
	filter := Resolve(admin(), "")
	assert.Equal(t, ModeAll, filter.Mode)
}

func TestResolve_AdminHonorsExplicitSelection(t *testing.T) {
	filter := Resolve(admin(), "loc-2")
	assert.Equal(t, ModeLocation, filter.Mode)
	assert.Equal(t, "loc-2", filter.LocationID)
}

func TestResolve_AdminAllSentinelClearsSelection(t *testing.T) {
	filter := Resolve(admin(), All)
	assert.Equal(t, ModeAll, filter.Mode)
}

func TestResolve_StaffForcedToAssignedLocation(t *testing.T) {
	// The requested location is ignored for non-admins.
	filter := Resolve(staff("loc-1"), "loc-9")
	assert.Equal(t, ModeLocation, filter.Mode)
	assert.Equal(t, "loc-1", filter.LocationID)
}

func TestResolve_StaffWithoutLocationSeesNothing(t *testing.T) {
	filter := Resolve(staff(""), "")
	assert.Equal(t, ModeNone, filter.Mode)
}

func TestClause(t *testing.T) {
	clause, args := Filter{Mode: ModeAll}.Clause("location_id", 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)

	clause, args = Filter{Mode: ModeLocation, LocationID: "loc-1"}.Clause("d.location_id", 3)
	assert.Equal(t, "d.location_id = $3", clause)
	assert.Equal(t, []interface{}{"loc-1"}, args)

	clause, args = Filter{Mode: ModeNone}.Clause("location_id", 1)
	assert.Equal(t, "FALSE", clause)
	assert.Empty(t, args)
}
