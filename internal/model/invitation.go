// internal/model/invitation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of a tenant invitation. A pending
// invitation transitions exactly once to accepted, revoked, or expired.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Invitation is a time-limited, single-use offer to join a tenant with a
// given role. The token is high-entropy and URL-safe; at most one pending
// invitation exists per (tenant, email) pair.
type Invitation struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	Token      string           `json:"token" db:"token"`
	TenantID   uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	Email      string           `json:"email" db:"email"`
	Role       Role             `json:"role" db:"role"`
	Message    string           `json:"message,omitempty" db:"message"`
	InvitedBy  *uuid.UUID       `json:"invited_by,omitempty" db:"invited_by"`
	Status     InvitationStatus `json:"status" db:"status"`
	ExpiresAt  time.Time        `json:"expires_at" db:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty" db:"accepted_at"`
	AcceptedBy *uuid.UUID       `json:"accepted_by,omitempty" db:"accepted_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// Expired reports whether the invitation's expiry lies before now.
// Expiration is evaluated lazily at validate/accept time, so a stored
// status of "pending" does not imply the invitation is still usable.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
