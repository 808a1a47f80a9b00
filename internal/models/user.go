package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleTechnician UserRole = "technician"
	RoleSales      UserRole = "sales"
	RoleFrontDesk  UserRole = "frontdesk"
)

var validRoles = map[UserRole]struct{}{
	RoleAdmin:      {},
	RoleManager:    {},
	RoleTechnician: {},
	RoleSales:      {},
	RoleFrontDesk:  {},
}

func IsValidRole(role UserRole) bool {
	_, ok := validRoles[role]
	return ok
}

// User is a staff account. Users are soft-deactivated, never hard-deleted.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	FullName     string     `json:"full_name" db:"full_name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Permissions  []string   `json:"permissions" db:"permissions"`
	LocationID   *string    `json:"location_id,omitempty" db:"location_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
