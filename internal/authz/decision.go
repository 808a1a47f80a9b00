package authz

import (
	"fmt"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
)

// AllowReason tags why access was granted. The admin bypass is an explicit
// variant rather than an implicit fallthrough so it stays visible in logs
// and tests.
type AllowReason string

const (
	AllowAdminOverride   AllowReason = "admin_override"
	AllowRoleMatch       AllowReason = "role_match"
	AllowPermissionMatch AllowReason = "permission_match"
	AllowAuthenticated   AllowReason = "authenticated"
)

// Decision is the outcome of evaluating the access-control gate.
type Decision struct {
	Allowed bool
	Reason  AllowReason
	// DenyReason is the human-readable explanation shown to the user on
	// denial, naming the missing role or permission.
	DenyReason string
}

func allow(reason AllowReason) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(format string, args ...interface{}) Decision {
	return Decision{Allowed: false, DenyReason: fmt.Sprintf(format, args...)}
}

// Evaluate applies the gate rules in order: no identity denies; the admin
// role allows unconditionally, bypassing both role and permission checks;
// a non-empty role set must contain the user's role; every required
// permission must be granted.
func Evaluate(ident *Identity, requiredRoles []models.UserRole, requiredPerms []string) Decision {
	if ident == nil || ident.UserID == "" {
		return deny("authentication required")
	}

	if ident.IsAdmin() {
		return allow(AllowAdminOverride)
	}

	if len(requiredRoles) > 0 {
		matched := false
		for _, role := range requiredRoles {
			if ident.Role == role {
				matched = true
				break
			}
		}
		if !matched {
			return deny("requires one of roles: %s", joinRoles(requiredRoles))
		}
	}

	for _, perm := range requiredPerms {
		if !ident.HasPermission(perm) {
			return deny("requires permission: %s", perm)
		}
	}

	switch {
	case len(requiredRoles) > 0:
		return allow(AllowRoleMatch)
	case len(requiredPerms) > 0:
		return allow(AllowPermissionMatch)
	default:
		return allow(AllowAuthenticated)
	}
}

func joinRoles(roles []models.UserRole) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ", ")
}
