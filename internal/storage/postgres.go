// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	_ "github.com/lib/pq"
)

// Sentinel errors shared by the query layers and the services above them.
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicatePending = errors.New("a pending invitation already exists for this tenant and email")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrNotPending       = errors.New("invitation is not pending")
	ErrExpired          = errors.New("invitation has expired")
	ErrRevoked          = errors.New("invitation has been revoked")
	ErrAlreadyUsed      = errors.New("invitation has already been accepted")
	ErrEmailMismatch    = errors.New("email does not match the invitation")
)

type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string, maxOpen, maxIdle int) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation, optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// Migrate creates the schema. Tenant-owned tables get row-level security
// policies keyed to the app.tenant_id session setting; the policies are a
// defense layer behind application-level filtering, not a replacement for it.
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	contact_email TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_trial BOOLEAN NOT NULL DEFAULT FALSE,
	settings JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tenant_domains (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	domain TEXT NOT NULL UNIQUE,
	is_primary BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_staff BOOLEAN NOT NULL DEFAULT FALSE,
	is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));

CREATE TABLE IF NOT EXISTS tenant_users (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	user_id UUID NOT NULL REFERENCES users(id),
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT tenant_users_tenant_user_key UNIQUE (tenant_id, user_id)
);

CREATE TABLE IF NOT EXISTS tenant_invitations (
	id UUID PRIMARY KEY,
	token TEXT NOT NULL UNIQUE,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	invited_by UUID REFERENCES users(id) ON DELETE SET NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	expires_at TIMESTAMPTZ NOT NULL,
	accepted_at TIMESTAMPTZ,
	accepted_by UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS tenant_invitations_pending_key
	ON tenant_invitations (tenant_id, lower(email)) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS suppliers (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE suppliers ENABLE ROW LEVEL SECURITY;
DROP POLICY IF EXISTS suppliers_tenant_isolation ON suppliers;
CREATE POLICY suppliers_tenant_isolation ON suppliers
	USING (tenant_id = current_setting('app.tenant_id', true)::uuid);
`
