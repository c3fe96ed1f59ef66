// internal/storage/users.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tenantcore/internal/model"
)

const userColumns = `id, email, password_hash, full_name, is_active, is_staff, is_superuser, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UserByID loads an account by primary key. Callers that gate on the staff
// or superuser flags must use this rather than a cached copy, so grants made
// elsewhere are visible on the next read.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active`, id)
	return scanUser(row)
}

// UserByEmail loads an account by email, case-insensitively.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) AND is_active`, email)
	return scanUser(row)
}

// CreateUser inserts an account. Returns ErrEmailTaken when the email is
// already registered.
func (s *Storage) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, is_active, is_staff, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.IsActive, u.IsStaff, u.IsSuperuser, u.CreatedAt)
	if isUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GrantStaff sets the elevated operator flag on an account. The grant is
// additive and idempotent; nothing in the platform ever clears it.
func (s *Storage) GrantStaff(ctx context.Context, userID uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE users SET is_staff = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("grant staff: %w", err)
	}
	return nil
}

const membershipColumns = `id, tenant_id, user_id, role, is_active, created_at`

func scanMembership(row *sql.Row) (*model.TenantUser, error) {
	var m model.TenantUser
	err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return &m, nil
}

// ActiveMembership returns the active TenantUser binding user to tenant.
func (s *Storage) ActiveMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM tenant_users
		WHERE tenant_id = $1 AND user_id = $2 AND is_active`, tenantID, userID)
	return scanMembership(row)
}

// FirstActiveMembership returns the user's earliest active membership by
// creation time. This is the only disambiguation rule when a user belongs to
// several tenants and no stronger resolution signal applies.
func (s *Storage) FirstActiveMembership(ctx context.Context, userID uuid.UUID) (*model.TenantUser, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM tenant_users
		WHERE user_id = $1 AND is_active
		ORDER BY created_at, id
		LIMIT 1`, userID)
	return scanMembership(row)
}

// MembershipByID loads a membership row by primary key.
func (s *Storage) MembershipByID(ctx context.Context, id uuid.UUID) (*model.TenantUser, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE id = $1`, id)
	return scanMembership(row)
}

// CreateMembership inserts a TenantUser row.
func (s *Storage) CreateMembership(ctx context.Context, m *model.TenantUser) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tenant_users (id, tenant_id, user_id, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.TenantID, m.UserID, m.Role, m.IsActive, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// UpdateMembershipRole persists a role change on a membership.
func (s *Storage) UpdateMembershipRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tenant_users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveMemberByEmail reports whether the email already belongs to an active
// member of the tenant.
func (s *Storage) ActiveMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tenant_users tu
			JOIN users u ON u.id = tu.user_id
			WHERE tu.tenant_id = $1 AND tu.is_active AND lower(u.email) = lower($2)
		)`, tenantID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check member by email: %w", err)
	}
	return exists, nil
}

// MembershipsByUser lists the user's active memberships joined with their
// tenants, earliest first. Backs the login response.
func (s *Storage) MembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+prefixedTenantColumns+`, tu.role
		FROM tenant_users tu
		JOIN tenants t ON t.id = tu.tenant_id
		WHERE tu.user_id = $1 AND tu.is_active AND t.is_active
		ORDER BY tu.created_at, tu.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		var settings []byte
		t := &m.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.ContactEmail, &t.IsActive, &t.IsTrial, &settings, &t.CreatedAt, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership row: %w", err)
		}
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &t.Settings); err != nil {
				return nil, fmt.Errorf("decode tenant settings: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
