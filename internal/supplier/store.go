// internal/supplier/store.go
package supplier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tenantcore/internal/model"
	"tenantcore/internal/storage"
	"tenantcore/internal/tenant"
)

// Store is the tenant-scoped persistence for suppliers, the reference
// consumer of the scoped-access contract every tenant-owned entity follows:
// reads with no tenant are empty, reads filter by the resolved tenant,
// creates force-assign the tenant, and mutations re-check row ownership.
// All queries run on the scope's RLS-pinned session.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const supplierColumns = `id, tenant_id, name, email, phone, is_active, created_at`

// List returns the resolved tenant's suppliers. With no tenant the result
// is empty; it is never "all tenants".
func (st *Store) List(ctx context.Context, sc *tenant.Scope) ([]model.Supplier, error) {
	tenantID, ok := sc.TenantID()
	if !ok {
		return []model.Supplier{}, nil
	}

	rows, err := sc.Querier().QueryContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	out := []model.Supplier{}
	for rows.Next() {
		var s model.Supplier
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Email, &s.Phone, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns one of the resolved tenant's suppliers.
func (st *Store) Get(ctx context.Context, sc *tenant.Scope, id uuid.UUID) (*model.Supplier, error) {
	tenantID, ok := sc.TenantID()
	if !ok {
		return nil, storage.ErrNotFound
	}

	var s model.Supplier
	err := sc.Querier().QueryRowContext(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Email, &s.Phone, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

// Create inserts a supplier owned by the resolved tenant. The tenant field
// is always assigned here from the scope; whatever tenant value the client
// sent in the payload has already been discarded by this point.
func (st *Store) Create(ctx context.Context, sc *tenant.Scope, s *model.Supplier) error {
	tenantID, ok := sc.TenantID()
	if !ok {
		return storage.ErrNotFound
	}

	s.ID = uuid.New()
	s.TenantID = tenantID
	s.IsActive = true
	s.CreatedAt = time.Now()

	_, err := sc.Querier().ExecContext(ctx, `
		INSERT INTO suppliers (id, tenant_id, name, email, phone, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.TenantID, s.Name, s.Email, s.Phone, s.IsActive, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// Update mutates one of the resolved tenant's suppliers. A row owned by
// another tenant is reported as not found, never as forbidden.
func (st *Store) Update(ctx context.Context, sc *tenant.Scope, id uuid.UUID, name, email, phone string) error {
	tenantID, ok := sc.TenantID()
	if !ok {
		return storage.ErrNotFound
	}

	res, err := sc.Querier().ExecContext(ctx, `
		UPDATE suppliers SET name = $1, email = $2, phone = $3
		WHERE id = $4 AND tenant_id = $5`,
		name, email, phone, id, tenantID)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes one of the resolved tenant's suppliers, with the same
// ownership re-check as Update.
func (st *Store) Delete(ctx context.Context, sc *tenant.Scope, id uuid.UUID) error {
	tenantID, ok := sc.TenantID()
	if !ok {
		return storage.ErrNotFound
	}

	res, err := sc.Querier().ExecContext(ctx,
		`DELETE FROM suppliers WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
