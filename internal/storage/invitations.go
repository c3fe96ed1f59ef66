// internal/storage/invitations.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenantcore/internal/model"
)

const invitationColumns = `id, token, tenant_id, email, role, message, invited_by, status, expires_at, accepted_at, accepted_by, created_at`

func scanInvitation(row *sql.Row) (*model.Invitation, error) {
	var inv model.Invitation
	err := row.Scan(&inv.ID, &inv.Token, &inv.TenantID, &inv.Email, &inv.Role, &inv.Message,
		&inv.InvitedBy, &inv.Status, &inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedBy, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return &inv, nil
}

// CreateInvitation inserts a pending invitation. The partial unique index on
// (tenant, email) WHERE status='pending' backstops concurrent creates;
// violations surface as ErrDuplicatePending.
func (s *Storage) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tenant_invitations (id, token, tenant_id, email, role, message, invited_by, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.Token, inv.TenantID, inv.Email, inv.Role, inv.Message, inv.InvitedBy, inv.Status, inv.ExpiresAt, inv.CreatedAt)
	if isUniqueViolation(err, "tenant_invitations_pending_key") {
		return ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// InvitationByToken loads an invitation by its token.
func (s *Storage) InvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM tenant_invitations WHERE token = $1`, token)
	return scanInvitation(row)
}

// InvitationByID loads an invitation by primary key, scoped to a tenant so a
// caller can never address another tenant's invitation.
func (s *Storage) InvitationByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invitation, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM tenant_invitations WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	return scanInvitation(row)
}

// ListInvitations returns a tenant's invitations, newest first.
func (s *Storage) ListInvitations(ctx context.Context, tenantID uuid.UUID) ([]model.Invitation, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM tenant_invitations WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []model.Invitation
	for rows.Next() {
		var inv model.Invitation
		if err := rows.Scan(&inv.ID, &inv.Token, &inv.TenantID, &inv.Email, &inv.Role, &inv.Message,
			&inv.InvitedBy, &inv.Status, &inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation row: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ExtendInvitation pushes a pending invitation's expiry forward. The token
// is deliberately left unchanged.
func (s *Storage) ExtendInvitation(ctx context.Context, id uuid.UUID, until time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE tenant_invitations SET expires_at = $1
		WHERE id = $2 AND status = 'pending'`, until, id)
	if err != nil {
		return fmt.Errorf("extend invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// RevokeInvitation transitions pending -> revoked.
func (s *Storage) RevokeInvitation(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE tenant_invitations SET status = 'revoked'
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// AcceptParams carries the account-creation fields for AcceptInvitation.
type AcceptParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Now          time.Time
}

// AcceptResult is everything the signup flow needs after a successful accept.
type AcceptResult struct {
	Invitation *model.Invitation
	User       *model.User
	Membership *model.TenantUser
	Tenant     *model.Tenant
}

// AcceptInvitation consumes an invitation token in one transaction: the
// invitation row is locked and re-validated, the account and membership are
// created, and the invitation flips pending -> accepted exactly once. Any
// failure rolls the whole transaction back, so no partial account or
// membership can be left behind. Under two concurrent accepts of the same
// token, the loser observes the already-transitioned row and gets
// ErrAlreadyUsed.
func (s *Storage) AcceptInvitation(ctx context.Context, token string, p AcceptParams) (*AcceptResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM tenant_invitations WHERE token = $1 FOR UPDATE`, token)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case model.InvitationAccepted:
		return nil, ErrAlreadyUsed
	case model.InvitationRevoked:
		return nil, ErrRevoked
	case model.InvitationExpired:
		return nil, ErrExpired
	}

	if inv.Expired(p.Now) {
		// Lazy expiry: record the transition while we hold the lock.
		if _, err := tx.ExecContext(ctx,
			`UPDATE tenant_invitations SET status = 'expired' WHERE id = $1`, inv.ID); err != nil {
			return nil, fmt.Errorf("mark invitation expired: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit expiry: %w", err)
		}
		return nil, ErrExpired
	}

	if !strings.EqualFold(inv.Email, p.Email) {
		return nil, ErrEmailMismatch
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FullName:     p.FullName,
		IsActive:     true,
		IsStaff:      inv.Role == model.RoleOwner,
		IsSuperuser:  false,
		CreatedAt:    p.Now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, is_active, is_staff, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.IsActive, user.IsStaff, user.IsSuperuser, user.CreatedAt)
	if isUniqueViolation(err, "users_email_key") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	member := &model.TenantUser{
		ID:        uuid.New(),
		TenantID:  inv.TenantID,
		UserID:    user.ID,
		Role:      inv.Role,
		IsActive:  true,
		CreatedAt: p.Now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenant_users (id, tenant_id, user_id, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		member.ID, member.TenantID, member.UserID, member.Role, member.IsActive, member.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE tenant_invitations
		SET status = 'accepted', accepted_at = $1, accepted_by = $2
		WHERE id = $3 AND status = 'pending'`,
		p.Now, user.ID, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("mark invitation accepted: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, ErrAlreadyUsed
	}

	tenant, err := scanTenant(tx.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, inv.TenantID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept tx: %w", err)
	}

	now := p.Now
	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &now
	inv.AcceptedBy = &user.ID

	return &AcceptResult{Invitation: inv, User: user, Membership: member, Tenant: tenant}, nil
}
