// internal/model/tenant.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization owning a partition of
// shared-schema data. Tenants are deactivated, never hard-deleted, while
// owned data exists.
type Tenant struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	Name         string            `json:"name" db:"name"`
	Slug         string            `json:"slug" db:"slug"`
	ContactEmail string            `json:"contact_email" db:"contact_email"`
	IsActive     bool              `json:"is_active" db:"is_active"`
	IsTrial      bool              `json:"is_trial" db:"is_trial"`
	Settings     map[string]string `json:"settings,omitempty" db:"settings"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// TenantDomain maps a full hostname onto a tenant. Created administratively;
// only consulted for exact-hostname resolution.
type TenantDomain struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Domain    string    `json:"domain" db:"domain"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
