// Package scope computes the effective location filter applied to list and
// detail queries. Admins see every branch unless they ask for one; other
// staff are confined to their assigned branch.
package scope

import (
	"fmt"

	"github.com/fixpoint-io/fixpoint-api/internal/authz"
)

// All is the sentinel a client sends to clear a saved location selection.
const All = "all"

type Mode int

const (
	// ModeAll applies no location clause.
	ModeAll Mode = iota
	// ModeLocation restricts rows to a single location.
	ModeLocation
	// ModeNone yields an empty result set (non-admin with no assigned
	// location).
	ModeNone
)

type Filter struct {
	Mode       Mode
	LocationID string
}

// Resolve maps the requester identity and an optional requested location
// (query parameter) to the filter applied by repositories.
//
// Admins default to all locations; an explicit request for a location is
// honored, and requesting "all" clears it. Non-admins are forced to their
// assigned location no matter what they request.
func Resolve(ident authz.Identity, requested string) Filter {
	if ident.IsAdmin() {
		if requested == "" || requested == All {
			return Filter{Mode: ModeAll}
		}
		return Filter{Mode: ModeLocation, LocationID: requested}
	}

	if ident.LocationID == nil || *ident.LocationID == "" {
		return Filter{Mode: ModeNone}
	}
	return Filter{Mode: ModeLocation, LocationID: *ident.LocationID}
}

// Clause renders the filter as a SQL condition on the given column. The
// placeholder is numbered from argIndex. ModeAll renders a tautology and no
// argument; ModeNone renders FALSE.
func (f Filter) Clause(column string, argIndex int) (string, []interface{}) {
	switch f.Mode {
	case ModeLocation:
		return fmt.Sprintf("%s = $%d", column, argIndex), []interface{}{f.LocationID}
	case ModeNone:
		return "FALSE", nil
	default:
		return "TRUE", nil
	}
}
