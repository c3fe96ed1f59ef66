// internal/rls/bridge.go
package rls

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Querier is the subset of database/sql used by tenant-scoped queries. All
// such queries must run on the request's pinned session so the row-level
// security policies see the tenant id set by the bridge.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Bridge propagates the resolved tenant into the database session for
// row-level defense in depth. Pool connections are reused across unrelated
// requests, so the session variable is overwritten at the start of every
// request, on every path, including ones that return early with an error.
// Transaction-scoped reset semantics are never relied on.
type Bridge struct {
	db  *sql.DB
	log *zap.Logger
}

func NewBridge(db *sql.DB, log *zap.Logger) *Bridge {
	return &Bridge{db: db, log: log}
}

// Acquire pins one connection for the request and writes the tenant id into
// its app.tenant_id setting. A zero tenantID means "no tenant": the all-zero
// uuid is written instead, an unmatchable sentinel that guarantees the RLS
// policies expose no rows regardless of any bug in the filtering layer above.
// Tenants are always created with random v4 ids, so the sentinel can never
// name a real tenant.
func (b *Bridge) Acquire(ctx context.Context, tenantID uuid.UUID) (*Session, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire db connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		`SELECT set_config('app.tenant_id', $1, false)`, tenantID.String()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set rls tenant: %w", err)
	}

	b.log.Debug("rls session acquired", zap.String("tenant_id", tenantID.String()))
	return &Session{conn: conn}, nil
}

// Session is a pinned database connection carrying the request's tenant id
// in its session state. Release it when the request ends.
type Session struct {
	conn *sql.Conn
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// Release returns the connection to the pool. The stale session variable
// left behind is harmless: the next request overwrites it before use.
func (s *Session) Release() error {
	return s.conn.Close()
}
