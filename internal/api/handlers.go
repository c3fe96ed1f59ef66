package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tenantcore/internal/auth"
	"tenantcore/internal/model"
	"tenantcore/internal/tenant"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string             `json:"token"`
	User    *model.User        `json:"user"`
	Tenants []model.Membership `json:"tenants"`
}

// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} loginResponse
// @Router /auth/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}

	user, err := a.Store.UserByEmail(r.Context(), body.Email)
	if err != nil || !auth.CheckPassword(body.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, err := a.Tokens.Generate(user)
	if err != nil {
		a.renderError(w, err)
		return
	}

	tenants, err := a.Store.MembershipsByUser(r.Context(), user.ID)
	if err != nil {
		a.renderError(w, err)
		return
	}
	if tenants == nil {
		tenants = []model.Membership{}
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user, Tenants: tenants})
}

// @Summary Preview a pending invitation
// @Tags Invitations
// @Produce json
// @Param token query string true "Invitation token"
// @Success 200 {object} invitation.Summary
// @Router /invitations/validate [get]
func (a *API) ValidateInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "token is required")
		return
	}

	summary, err := a.Invites.Validate(r.Context(), token)
	if err != nil {
		a.renderInvitationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type signupRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signupResponse struct {
	Token  string        `json:"token"`
	User   *model.User   `json:"user"`
	Tenant *model.Tenant `json:"tenant"`
	Role   model.Role    `json:"role"`
}

// @Summary Create an account by accepting an invitation
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body signupRequest true "Signup fields"
// @Success 201 {object} signupResponse
// @Router /auth/signup-with-invitation [post]
func (a *API) SignupWithInvitation(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}
	if body.Token == "" || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "token, email and password are required")
		return
	}

	res, err := a.Invites.Accept(r.Context(), body.Token, body.Email, body.Password, body.FullName)
	if err != nil {
		a.renderInvitationError(w, err)
		return
	}

	session, err := a.Tokens.Generate(res.User)
	if err != nil {
		a.renderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Token:  session,
		User:   res.User,
		Tenant: res.Tenant,
		Role:   res.Membership.Role,
	})
}

// requestTenant pulls the resolved tenant and authenticated user off the
// request; tenant-management endpoints cannot run without both.
func (a *API) requestTenant(w http.ResponseWriter, r *http.Request) (*model.Tenant, *model.User, bool) {
	sc := tenant.FromContext(r.Context())
	user := auth.UserFrom(r.Context())
	if sc == nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return nil, nil, false
	}
	t, ok := sc.Tenant()
	if !ok {
		writeError(w, http.StatusBadRequest, "no_tenant", "no tenant resolved for this request")
		return nil, nil, false
	}
	return t, user, true
}

type createInvitationRequest struct {
	Email   string     `json:"email"`
	Role    model.Role `json:"role"`
	Message string     `json:"message"`
}

// @Summary Invite an email address to the current tenant
// @Tags Invitations
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body createInvitationRequest true "Invitation"
// @Success 201 {object} model.Invitation
// @Router /invitations [post]
func (a *API) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	t, user, ok := a.requestTenant(w, r)
	if !ok {
		return
	}

	var body createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}
	if body.Email == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}

	inv, err := a.Invites.Create(r.Context(), t, user, body.Email, body.Role, body.Message)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// @Summary List the current tenant's invitations
// @Tags Invitations
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} model.Invitation
// @Router /invitations [get]
func (a *API) ListInvitations(w http.ResponseWriter, r *http.Request) {
	t, user, ok := a.requestTenant(w, r)
	if !ok {
		return
	}

	invs, err := a.Invites.List(r.Context(), t, user)
	if err != nil {
		a.renderError(w, err)
		return
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// @Summary Extend a pending invitation's expiry
// @Tags Invitations
// @Security ApiKeyAuth
// @Param id path string true "Invitation UUID"
// @Produce json
// @Success 200 {object} model.Invitation
// @Router /invitations/{id}/resend [post]
func (a *API) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	t, user, ok := a.requestTenant(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid invitation id")
		return
	}

	inv, err := a.Invites.Resend(r.Context(), t, user, id)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// @Summary Revoke a pending invitation
// @Tags Invitations
// @Security ApiKeyAuth
// @Param id path string true "Invitation UUID"
// @Success 204
// @Router /invitations/{id}/revoke [post]
func (a *API) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	t, user, ok := a.requestTenant(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid invitation id")
		return
	}

	if err := a.Invites.Revoke(r.Context(), t, user, id); err != nil {
		a.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role model.Role `json:"role"`
}

// @Summary Change a member's role within the current tenant
// @Tags Members
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "Membership UUID"
// @Param body body changeRoleRequest true "New role"
// @Success 200 {object} model.TenantUser
// @Router /members/{id}/role [put]
func (a *API) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	t, user, ok := a.requestTenant(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid membership id")
		return
	}

	var body changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "bad request body")
		return
	}

	m, err := a.Members.ChangeRole(r.Context(), t.ID, user, id, body.Role)
	if err != nil {
		a.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
