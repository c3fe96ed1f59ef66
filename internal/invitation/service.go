// internal/invitation/service.go
package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/auth"
	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
	"tenantcore/internal/storage"
)

// Validation failures surfaced by the service on top of the storage
// sentinels (ErrNotFound, ErrDuplicatePending, ErrExpired, ErrRevoked,
// ErrAlreadyUsed, ErrEmailTaken, ErrEmailMismatch, ErrNotPending).
var (
	ErrInviterForbidden = errors.New("only tenant owners and admins can manage invitations")
	ErrInvalidRole      = errors.New("invalid membership role")
	ErrAlreadyMember    = errors.New("email already belongs to an active member of this tenant")
)

// Store is the persistence surface the service needs. *storage.Storage
// satisfies it; tests provide fakes.
type Store interface {
	CreateInvitation(ctx context.Context, inv *model.Invitation) error
	InvitationByToken(ctx context.Context, token string) (*model.Invitation, error)
	InvitationByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invitation, error)
	ListInvitations(ctx context.Context, tenantID uuid.UUID) ([]model.Invitation, error)
	ExtendInvitation(ctx context.Context, id uuid.UUID, until time.Time) error
	RevokeInvitation(ctx context.Context, id uuid.UUID) error
	AcceptInvitation(ctx context.Context, token string, p storage.AcceptParams) (*storage.AcceptResult, error)
	ActiveMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
	ActiveMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error)
	ActiveTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

// Notifier consumes newly created invitation records. Delivery itself is a
// separate component; the service only hands over the fields it needs.
type Notifier interface {
	PublishInvitation(inv *model.Invitation, tenantName string) error
}

// Service implements the invitation onboarding protocol: a pending
// invitation transitions exactly once to accepted, revoked, or expired.
type Service struct {
	store    Store
	notifier Notifier // nil disables notifications
	expiry   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, expiry time.Duration, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		expiry:   expiry,
		log:      log,
		now:      time.Now,
	}
}

// requireManager checks that the actor may manage invitations for the
// tenant: platform operators pass, otherwise an active owner or admin
// membership is required.
func (s *Service) requireManager(ctx context.Context, tenantID uuid.UUID, actor *model.User) error {
	if actor.IsSuperuser {
		return nil
	}
	m, err := s.store.ActiveMembership(ctx, tenantID, actor.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInviterForbidden
	}
	if err != nil {
		return fmt.Errorf("check inviter membership: %w", err)
	}
	if !m.Role.CanInvite() {
		return ErrInviterForbidden
	}
	return nil
}

// Create issues a pending invitation for (tenant, email) with a role. Fails
// when the email already maps to an active member or a pending invitation
// for the pair exists; the partial unique index backstops the latter under
// concurrency.
func (s *Service) Create(ctx context.Context, tenant *model.Tenant, inviter *model.User, email string, role model.Role, message string) (*model.Invitation, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.requireManager(ctx, tenant.ID, inviter); err != nil {
		return nil, err
	}

	member, err := s.store.ActiveMemberByEmail(ctx, tenant.ID, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inviterID := inviter.ID
	inv := &model.Invitation{
		ID:        uuid.New(),
		Token:     token,
		TenantID:  tenant.ID,
		Email:     email,
		Role:      role,
		Message:   message,
		InvitedBy: &inviterID,
		Status:    model.InvitationPending,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	metrics.InvitationsCreated.Inc()
	s.notify(inv, tenant.Name)
	s.log.Info("invitation created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("role", string(role)))
	return inv, nil
}

// Summary is what an unauthenticated invitee may see about a pending
// invitation before registering.
type Summary struct {
	TenantName string     `json:"tenant_name"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	Message    string     `json:"message,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Validate is the public, read-only preview of an invitation. Each failure
// mode gets its own error so callers can distinguish not-found, expired,
// revoked, and already-used tokens.
func (s *Service) Validate(ctx context.Context, token string) (*Summary, error) {
	inv, err := s.store.InvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case model.InvitationAccepted:
		return nil, storage.ErrAlreadyUsed
	case model.InvitationRevoked:
		return nil, storage.ErrRevoked
	case model.InvitationExpired:
		return nil, storage.ErrExpired
	}
	if inv.Expired(s.now()) {
		return nil, storage.ErrExpired
	}

	tenant, err := s.store.ActiveTenantByID(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TenantName: tenant.Name,
		Email:      inv.Email,
		Role:       inv.Role,
		Message:    inv.Message,
		ExpiresAt:  inv.ExpiresAt,
	}, nil
}

// Accept consumes the token: one transaction re-validates the invitation,
// creates the account and membership, and flips the invitation to accepted.
// The account email must match the invitation's email.
func (s *Service) Accept(ctx context.Context, token, email, password, fullName string) (*storage.AcceptResult, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.store.AcceptInvitation(ctx, token, storage.AcceptParams{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitationsAccepted.Inc()
	s.log.Info("invitation accepted",
		zap.String("tenant_id", res.Tenant.ID.String()),
		zap.String("role", string(res.Membership.Role)))
	return res, nil
}

// Resend extends a pending invitation's expiry forward from now by the
// standard window and re-emits the notification record. The token value is
// deliberately reused rather than rotated; rotating would invalidate
// already-delivered mails.
func (s *Service) Resend(ctx context.Context, tenant *model.Tenant, actor *model.User, id uuid.UUID) (*model.Invitation, error) {
	if err := s.requireManager(ctx, tenant.ID, actor); err != nil {
		return nil, err
	}
	inv, err := s.store.InvitationByID(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	until := s.now().Add(s.expiry)
	if err := s.store.ExtendInvitation(ctx, inv.ID, until); err != nil {
		return nil, err
	}
	inv.ExpiresAt = until
	s.notify(inv, tenant.Name)
	return inv, nil
}

// Revoke transitions pending -> revoked. Accepting the token afterwards
// always fails, regardless of expiry.
func (s *Service) Revoke(ctx context.Context, tenant *model.Tenant, actor *model.User, id uuid.UUID) error {
	if err := s.requireManager(ctx, tenant.ID, actor); err != nil {
		return err
	}
	inv, err := s.store.InvitationByID(ctx, tenant.ID, id)
	if err != nil {
		return err
	}
	return s.store.RevokeInvitation(ctx, inv.ID)
}

// List returns the tenant's invitations for management views.
func (s *Service) List(ctx context.Context, tenant *model.Tenant, actor *model.User) ([]model.Invitation, error) {
	if err := s.requireManager(ctx, tenant.ID, actor); err != nil {
		return nil, err
	}
	return s.store.ListInvitations(ctx, tenant.ID)
}

func (s *Service) notify(inv *model.Invitation, tenantName string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishInvitation(inv, tenantName); err != nil {
		// Delivery is best effort; the invitation itself is already durable.
		s.log.Warn("failed to publish invitation record", zap.Error(err))
	}
}
