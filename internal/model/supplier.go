// internal/model/supplier.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a tenant-owned business entity. Its TenantID is always
// assigned by the platform from the resolved request tenant, never taken
// from client input.
type Supplier struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
