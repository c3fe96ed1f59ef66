// internal/api/middleware.go
package api

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/auth"
	"tenantcore/internal/tenant"
)

// TenantContext is the mandatory first step of tenant-scoped request
// handling: resolve the tenant, then arm the database-level defense layer.
// The bridge runs on every path, including ones that return early with a
// resolution or authorization error, because the pooled connection still
// carries whatever tenant the previous request set.
func (a *API) TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFrom(r.Context())

		res, resErr := a.Resolver.Resolve(r.Context(), r.Header.Get(tenant.HeaderTenantID), r.Host, user)

		tenantID := uuid.Nil
		if resErr == nil && res.Tenant != nil {
			tenantID = res.Tenant.ID
		}
		session, err := a.Bridge.Acquire(r.Context(), tenantID)
		if err != nil {
			a.Log.Error("failed to acquire rls session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		defer session.Release()

		if resErr != nil {
			a.renderError(w, resErr)
			return
		}

		sc := tenant.NewScope(res, session)
		next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), sc)))
	})
}
