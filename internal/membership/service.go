// internal/membership/service.go
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/model"
	"tenantcore/internal/storage"
)

var (
	// ErrForbidden means the actor may not manage memberships for the tenant.
	ErrForbidden = errors.New("only tenant owners and admins can change member roles")
	// ErrInvalidRole means the requested role is not a known role value.
	ErrInvalidRole = errors.New("invalid membership role")
)

// Store is the persistence surface for membership transitions.
type Store interface {
	MembershipByID(ctx context.Context, id uuid.UUID) (*model.TenantUser, error)
	ActiveMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error)
	UpdateMembershipRole(ctx context.Context, id uuid.UUID, role model.Role) error
	GrantStaff(ctx context.Context, userID uuid.UUID) error
}

// Service owns membership state transitions. Role changes are an explicit
// operation here rather than a save-time hook, so the owner escalation rule
// is visible in the call graph.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// ChangeRole sets a membership's role. The actor must be a platform
// operator or an active owner/admin of the tenant. A membership outside the
// tenant is reported as not found, never as forbidden, to avoid confirming
// its existence.
//
// When the new role is owner, the underlying account is granted the staff
// flag. The grant is additive and idempotent; demoting away from owner does
// not revoke it. Symmetric revocation is an open product decision, not an
// implemented behavior.
func (s *Service) ChangeRole(ctx context.Context, tenantID uuid.UUID, actor *model.User, membershipID uuid.UUID, newRole model.Role) (*model.TenantUser, error) {
	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}

	if !actor.IsSuperuser {
		am, err := s.store.ActiveMembership(ctx, tenantID, actor.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrForbidden
		}
		if err != nil {
			return nil, fmt.Errorf("check actor membership: %w", err)
		}
		if !am.Role.CanInvite() {
			return nil, ErrForbidden
		}
	}

	m, err := s.store.MembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.TenantID != tenantID {
		return nil, storage.ErrNotFound
	}

	if err := s.store.UpdateMembershipRole(ctx, m.ID, newRole); err != nil {
		return nil, err
	}
	m.Role = newRole

	if newRole == model.RoleOwner {
		if err := s.store.GrantStaff(ctx, m.UserID); err != nil {
			return nil, err
		}
		s.log.Info("staff access granted with owner role",
			zap.String("user_id", m.UserID.String()),
			zap.String("tenant_id", tenantID.String()))
	}

	return m, nil
}
