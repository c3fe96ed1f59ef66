// internal/api/suppliers.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tenantcore/internal/model"
	"tenantcore/internal/tenant"
)

// supplierRequest is the write payload for suppliers. TenantID is accepted
// on the wire but never trusted: ownership always comes from the resolved
// request tenant.
type supplierRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	TenantID string `json:"tenant_id,omitempty"`
}

// @Summary List the current tenant's suppliers
// @Tags Suppliers
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.Supplier
// @Router /suppliers [get]
func (a *API) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	sc := tenant.FromContext(r.Context())
	if sc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	// No tenant resolves to an empty list, never to all tenants.
	suppliers, err := a.Suppliers.List(r.Context(), sc)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

// @Summary Create a supplier owned by the current tenant
// @Tags Suppliers
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body supplierRequest true "Supplier"
// @Success 201 {object} model.Supplier
// @Router /suppliers [post]
func (a *API) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	sc := tenant.FromContext(r.Context())
	if sc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if _, ok := sc.TenantID(); !ok {
		writeError(w, http.StatusBadRequest, "no_tenant", "no tenant resolved for this request")
		return
	}

	var body supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "name is required")
		return
	}

	s := &model.Supplier{Name: body.Name, Email: body.Email, Phone: body.Phone}
	if err := a.Suppliers.Create(r.Context(), sc, s); err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// @Summary Get one supplier
// @Tags Suppliers
// @Security ApiKeyAuth
// @Param id path string true "Supplier UUID"
// @Produce json
// @Success 200 {object} model.Supplier
// @Router /suppliers/{id} [get]
func (a *API) GetSupplier(w http.ResponseWriter, r *http.Request) {
	sc := tenant.FromContext(r.Context())
	if sc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid supplier id")
		return
	}

	s, err := a.Suppliers.Get(r.Context(), sc, id)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary Update one of the current tenant's suppliers
// @Tags Suppliers
// @Security ApiKeyAuth
// @Param id path string true "Supplier UUID"
// @Accept json
// @Produce json
// @Success 200 {object} model.Supplier
// @Router /suppliers/{id} [put]
func (a *API) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	sc := tenant.FromContext(r.Context())
	if sc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid supplier id")
		return
	}

	var body supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}

	if err := a.Suppliers.Update(r.Context(), sc, id, body.Name, body.Email, body.Phone); err != nil {
		a.renderError(w, err)
		return
	}

	s, err := a.Suppliers.Get(r.Context(), sc, id)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary Delete one of the current tenant's suppliers
// @Tags Suppliers
// @Security ApiKeyAuth
// @Param id path string true "Supplier UUID"
// @Success 204
// @Router /suppliers/{id} [delete]
func (a *API) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	sc := tenant.FromContext(r.Context())
	if sc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid supplier id")
		return
	}

	if err := a.Suppliers.Delete(r.Context(), sc, id); err != nil {
		a.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
