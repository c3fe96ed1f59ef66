// internal/tenant/resolver.go
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/cache"
	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
	"tenantcore/internal/storage"
)

// HeaderTenantID is the request header carrying an explicit tenant
// selection. The header is a hard assertion: if the caller may not access
// the named tenant the request fails, it never falls through to weaker
// resolution signals.
const HeaderTenantID = "X-Tenant-ID"

// Source identifies which signal resolved the request's tenant.
type Source string

const (
	SourceHeader      Source = "header"
	SourceDomain      Source = "domain"
	SourceSubdomain   Source = "subdomain"
	SourceUserDefault Source = "user_default"
	SourceNone        Source = "none"
)

// Resolution is the tagged outcome of tenant resolution. Tenant is nil when
// Source is SourceNone.
type Resolution struct {
	Tenant *model.Tenant
	Source Source
}

// ErrTenantNotFound is returned when the X-Tenant-ID header names a tenant
// that does not exist or is inactive. An unparseable header value gets the
// same treatment.
var ErrTenantNotFound = errors.New("tenant not found or inactive")

// AccessDeniedError is returned when the header-selected tenant exists but
// the requester holds no active membership in it.
type AccessDeniedError struct {
	TenantID uuid.UUID
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("you are not an active member of tenant %s", e.TenantID)
}

// Directory is the read surface the resolver needs from the tenant store.
type Directory interface {
	ActiveTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	ActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error)
	ActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	ActiveMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error)
	FirstActiveMembership(ctx context.Context, userID uuid.UUID) (*model.TenantUser, error)
}

// Resolver determines the active tenant for a request from four strictly
// ordered signals: explicit header, full domain, subdomain slug, then the
// authenticated user's earliest membership. First match wins; signals are
// never merged. Any ambiguity resolves to "no tenant", never to another
// tenant's data.
type Resolver struct {
	dir    Directory
	lookup *cache.TenantLookup
	log    *zap.Logger
}

func NewResolver(dir Directory, lookup *cache.TenantLookup, log *zap.Logger) *Resolver {
	return &Resolver{dir: dir, lookup: lookup, log: log}
}

// Resolve produces exactly one of: a resolved active tenant, or no tenant.
// user may be nil for unauthenticated requests.
func (r *Resolver) Resolve(ctx context.Context, headerID, host string, user *model.User) (Resolution, error) {
	// 1. Explicit header: a hard assertion, checked by the guard.
	if headerID != "" {
		t, err := r.byHeader(ctx, headerID, user)
		if err != nil {
			return Resolution{Source: SourceNone}, err
		}
		metrics.TenantResolutions.WithLabelValues(string(SourceHeader)).Inc()
		return Resolution{Tenant: t, Source: SourceHeader}, nil
	}

	hostname := stripPort(host)

	// 2. Full hostname match against tenant_domains.
	if hostname != "" {
		if t := r.byDomain(ctx, hostname); t != nil {
			metrics.TenantResolutions.WithLabelValues(string(SourceDomain)).Inc()
			return Resolution{Tenant: t, Source: SourceDomain}, nil
		}

		// 3. First label of the hostname as a tenant slug.
		if label, _, found := strings.Cut(hostname, "."); found && label != "" {
			if t := r.bySlug(ctx, label); t != nil {
				metrics.TenantResolutions.WithLabelValues(string(SourceSubdomain)).Inc()
				return Resolution{Tenant: t, Source: SourceSubdomain}, nil
			}
		}
	}

	// 4. Authenticated user's earliest active membership.
	if user != nil {
		m, err := r.dir.FirstActiveMembership(ctx, user.ID)
		if err == nil {
			t, terr := r.dir.ActiveTenantByID(ctx, m.TenantID)
			if terr == nil {
				metrics.TenantResolutions.WithLabelValues(string(SourceUserDefault)).Inc()
				return Resolution{Tenant: t, Source: SourceUserDefault}, nil
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return Resolution{Source: SourceNone}, fmt.Errorf("resolve default membership: %w", err)
		}
	}

	// 5. No tenant. Fail closed.
	metrics.TenantResolutions.WithLabelValues(string(SourceNone)).Inc()
	return Resolution{Source: SourceNone}, nil
}

func (r *Resolver) byHeader(ctx context.Context, headerID string, user *model.User) (*model.Tenant, error) {
	id, err := uuid.Parse(headerID)
	if err != nil {
		return nil, ErrTenantNotFound
	}
	t, err := r.dir.ActiveTenantByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tenant by id: %w", err)
	}
	if err := r.Authorize(ctx, t, user); err != nil {
		return nil, err
	}
	return t, nil
}

// Authorize is the access guard for explicit tenant selection. Platform
// operators pass unconditionally; everyone else needs an active membership.
// Denial aborts the request, it never downgrades to another signal.
func (r *Resolver) Authorize(ctx context.Context, t *model.Tenant, user *model.User) error {
	if user != nil && user.IsSuperuser {
		return nil
	}
	if user != nil {
		_, err := r.dir.ActiveMembership(ctx, t.ID, user.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("check membership: %w", err)
		}
	}
	metrics.AccessDenied.Inc()
	r.log.Warn("explicit tenant selection denied",
		zap.String("tenant_id", t.ID.String()))
	return &AccessDeniedError{TenantID: t.ID}
}

func (r *Resolver) byDomain(ctx context.Context, hostname string) *model.Tenant {
	if id, ok := r.lookup.Get(ctx, "domain", hostname); ok {
		if t, err := r.dir.ActiveTenantByID(ctx, id); err == nil {
			return t
		}
	}
	t, err := r.dir.ActiveTenantByDomain(ctx, hostname)
	if err != nil {
		return nil
	}
	r.lookup.Set(ctx, "domain", hostname, t.ID)
	return t
}

func (r *Resolver) bySlug(ctx context.Context, slug string) *model.Tenant {
	if id, ok := r.lookup.Get(ctx, "slug", slug); ok {
		if t, err := r.dir.ActiveTenantByID(ctx, id); err == nil {
			return t
		}
	}
	t, err := r.dir.ActiveTenantBySlug(ctx, slug)
	if err != nil {
		return nil
	}
	r.lookup.Set(ctx, "slug", slug, t.ID)
	return t
}

func stripPort(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
