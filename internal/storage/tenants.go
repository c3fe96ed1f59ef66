// internal/storage/tenants.go
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

const tenantColumns = `id, name, slug, contact_email, is_active, is_trial, settings, created_at`

func scanTenant(row *sql.Row) (*model.Tenant, error) {
	var t model.Tenant
	var settings []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.ContactEmail, &t.IsActive, &t.IsTrial, &settings, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return &t, nil
}

// ActiveTenantByID looks up an active tenant by primary key.
func (s *Storage) ActiveTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND is_active`, id)
	return scanTenant(row)
}

// ActiveTenantByDomain resolves a full hostname through tenant_domains.
func (s *Storage) ActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+prefixedTenantColumns+`
		FROM tenants t
		JOIN tenant_domains d ON d.tenant_id = t.id
		WHERE d.domain = $1 AND t.is_active`, domain)
	return scanTenant(row)
}

// ActiveTenantBySlug looks up an active tenant by its subdomain slug.
func (s *Storage) ActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND is_active`, slug)
	return scanTenant(row)
}

const prefixedTenantColumns = `t.id, t.name, t.slug, t.contact_email, t.is_active, t.is_trial, t.settings, t.created_at`

// CreateTenant inserts a tenant row.
func (s *Storage) CreateTenant(ctx context.Context, t *model.Tenant) error {
	settings := t.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode tenant settings: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, contact_email, is_active, is_trial, settings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Slug, t.ContactEmail, t.IsActive, t.IsTrial, raw, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// CreateTenantDomain registers a hostname for a tenant.
func (s *Storage) CreateTenantDomain(ctx context.Context, d *model.TenantDomain) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tenant_domains (id, tenant_id, domain, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.TenantID, d.Domain, d.IsPrimary, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant domain: %w", err)
	}
	return nil
}

// DeactivateTenant soft-disables a tenant. Tenants are never hard-deleted
// while owned data exists.
func (s *Storage) DeactivateTenant(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE tenants SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
