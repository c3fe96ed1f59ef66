// internal/model/user.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a membership role within a tenant.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// CanInvite reports whether a member with this role may manage
// invitations and memberships for the tenant.
func (r Role) CanInvite() bool {
	return r == RoleOwner || r == RoleAdmin
}

// User is a platform account. IsStaff is the elevated operator flag read by
// the admin UI; IsSuperuser marks a platform operator who bypasses tenant
// membership checks.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TenantUser binds one account to one tenant with a role. Unique per
// (tenant, user); deactivated rather than deleted to preserve audit history.
type TenantUser struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Membership is a TenantUser joined with its tenant, as returned by login.
type Membership struct {
	Tenant Tenant `json:"tenant"`
	Role   Role   `json:"role"`
}
