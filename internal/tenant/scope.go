// internal/tenant/scope.go
package tenant

import (
	"context"

	"github.com/google/uuid"

	"tenantcore/internal/model"
	"tenantcore/internal/rls"
)

// Scope is the per-request tenant context: the resolution outcome plus the
// RLS-pinned database session every tenant-scoped query must run on. It is
// built by the request pipeline after the bridge has set the session
// variable, so holding a Scope implies the database-level defense layer is
// already armed for this request.
type Scope struct {
	resolution Resolution
	session    rls.Querier
}

func NewScope(res Resolution, sess rls.Querier) *Scope {
	return &Scope{resolution: res, session: sess}
}

// Tenant returns the resolved tenant, or false when the request has none.
func (s *Scope) Tenant() (*model.Tenant, bool) {
	if s.resolution.Tenant == nil {
		return nil, false
	}
	return s.resolution.Tenant, true
}

// TenantID returns the resolved tenant id, or false when the request has
// none. Readers with no tenant must return empty result sets, never data
// from all tenants.
func (s *Scope) TenantID() (uuid.UUID, bool) {
	if s.resolution.Tenant == nil {
		return uuid.Nil, false
	}
	return s.resolution.Tenant.ID, true
}

// Source reports which signal resolved the tenant.
func (s *Scope) Source() Source {
	return s.resolution.Source
}

// Querier returns the pinned session for tenant-scoped queries.
func (s *Scope) Querier() rls.Querier {
	return s.session
}

type scopeKey struct{}

// WithScope attaches the request scope to a context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext extracts the request scope. It is nil outside the tenant
// pipeline.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}
