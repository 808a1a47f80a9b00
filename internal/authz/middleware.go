package authz

import (
	"encoding/json"
	"net/http"

	"github.com/fixpoint-io/fixpoint-api/internal/models"
)

// Require returns a middleware enforcing the gate with the given role and
// permission sets. Denials carry the human-readable reason in a structured
// body rather than a silent rejection.
func Require(roles []models.UserRole, perms []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identPtr *Identity
			if ident, ok := IdentityFromRequest(r); ok {
				identPtr = &ident
			}

			decision := Evaluate(identPtr, roles, perms)
			if !decision.Allowed {
				status := http.StatusForbidden
				if identPtr == nil {
					status = http.StatusUnauthorized
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
					"error": map[string]string{
						"kind":    "forbidden",
						"message": decision.DenyReason,
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles gates a route on role membership (admin always passes).
func RequireRoles(roles ...models.UserRole) func(http.Handler) http.Handler {
	return Require(roles, nil)
}

// RequirePermissions gates a route on granted permissions (admin always passes).
func RequirePermissions(perms ...string) func(http.Handler) http.Handler {
	return Require(nil, perms)
}
