// internal/api/errors.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tenantcore/internal/invitation"
	"tenantcore/internal/membership"
	"tenantcore/internal/storage"
	"tenantcore/internal/tenant"
)

// errorBody is the stable error envelope: a machine-readable code plus a
// human-readable message. Internal detail never reaches the client.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// renderError maps service errors onto the HTTP taxonomy. Each invitation
// token state keeps its own code; callers depend on telling them apart.
func (a *API) renderError(w http.ResponseWriter, err error) {
	var denied *tenant.AccessDeniedError
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant_not_found", err.Error())
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, "tenant_forbidden", denied.Error())
	case errors.Is(err, storage.ErrDuplicatePending):
		writeError(w, http.StatusBadRequest, "duplicate_pending_invitation", err.Error())
	case errors.Is(err, invitation.ErrAlreadyMember):
		writeError(w, http.StatusBadRequest, "already_member", err.Error())
	case errors.Is(err, invitation.ErrInvalidRole), errors.Is(err, membership.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role", err.Error())
	case errors.Is(err, invitation.ErrInviterForbidden), errors.Is(err, membership.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, storage.ErrExpired):
		writeError(w, http.StatusGone, "invitation_expired", err.Error())
	case errors.Is(err, storage.ErrRevoked):
		writeError(w, http.StatusGone, "invitation_revoked", err.Error())
	case errors.Is(err, storage.ErrAlreadyUsed):
		writeError(w, http.StatusGone, "invitation_already_used", err.Error())
	case errors.Is(err, storage.ErrNotPending):
		writeError(w, http.StatusBadRequest, "invitation_not_pending", err.Error())
	case errors.Is(err, storage.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email_taken", err.Error())
	case errors.Is(err, storage.ErrEmailMismatch):
		writeError(w, http.StatusBadRequest, "email_mismatch", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	default:
		a.Log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// renderInvitationError is renderError with token lookups reported as a
// distinct invitation_not_found, so the public validate/signup endpoints
// give invitees a precise failure reason.
func (a *API) renderInvitationError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "invitation_not_found", "invitation not found")
		return
	}
	a.renderError(w, err)
}
