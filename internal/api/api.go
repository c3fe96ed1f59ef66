package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "tenantcore/docs"
	"tenantcore/internal/auth"
	"tenantcore/internal/invitation"
	"tenantcore/internal/membership"
	"tenantcore/internal/metrics"
	"tenantcore/internal/rls"
	"tenantcore/internal/storage"
	"tenantcore/internal/supplier"
	"tenantcore/internal/tenant"
)

type API struct {
	Store     *storage.Storage
	Resolver  *tenant.Resolver
	Bridge    *rls.Bridge
	Invites   *invitation.Service
	Members   *membership.Service
	Suppliers *supplier.Store
	Tokens    *auth.TokenService
	Log       *zap.Logger
}

func NewAPI(
	store *storage.Storage,
	resolver *tenant.Resolver,
	bridge *rls.Bridge,
	invites *invitation.Service,
	members *membership.Service,
	suppliers *supplier.Store,
	tokens *auth.TokenService,
	log *zap.Logger,
) *API {
	return &API{
		Store:     store,
		Resolver:  resolver,
		Bridge:    bridge,
		Invites:   invites,
		Members:   members,
		Suppliers: suppliers,
		Tokens:    tokens,
		Log:       log,
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Public
	r.Post("/auth/login", a.Login)
	r.Get("/invitations/validate", a.ValidateInvitation)
	r.Post("/auth/signup-with-invitation", a.SignupWithInvitation)

	// Secured: every request passes resolver -> guard -> bridge before any
	// business logic runs.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(a.Tokens, a.Store))
		r.Use(auth.RequireUser)
		r.Use(a.TenantContext)

		r.Post("/invitations", a.CreateInvitation)
		r.Get("/invitations", a.ListInvitations)
		r.Post("/invitations/{id}/resend", a.ResendInvitation)
		r.Post("/invitations/{id}/revoke", a.RevokeInvitation)

		r.Put("/members/{id}/role", a.ChangeMemberRole)

		r.Get("/suppliers", a.ListSuppliers)
		r.Post("/suppliers", a.CreateSupplier)
		r.Get("/suppliers/{id}", a.GetSupplier)
		r.Put("/suppliers/{id}", a.UpdateSupplier)
		r.Delete("/suppliers/{id}", a.DeleteSupplier)
	})

	return r
}

// @Summary Health check
// @Tags Platform
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
