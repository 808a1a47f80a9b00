package authz

import (
	"context"
	"net/http"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated requester as extracted from the bearer token.
type Identity struct {
	UserID      string
	Role        models.UserRole
	Permissions []string
	LocationID  *string
}

func (id Identity) IsAdmin() bool {
	return id.Role == models.RoleAdmin
}

func (id Identity) HasPermission(perm string) bool {
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// WithIdentity stores the requester identity on the context.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	if !ok || ident.UserID == "" {
		return Identity{}, false
	}
	return ident, true
}

func IdentityFromRequest(r *http.Request) (Identity, bool) {
	return IdentityFromContext(r.Context())
}
