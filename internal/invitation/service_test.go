package invitation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenantcore/internal/model"
	"tenantcore/internal/storage"
)

type fakeStore struct {
	tenants     map[uuid.UUID]*model.Tenant
	invitations map[uuid.UUID]*model.Invitation
	memberships []*model.TenantUser
	userEmails  map[string]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:     map[uuid.UUID]*model.Tenant{},
		invitations: map[uuid.UUID]*model.Invitation{},
		userEmails:  map[string]uuid.UUID{},
	}
}

func (f *fakeStore) addTenant(name, slug string) *model.Tenant {
	t := &model.Tenant{ID: uuid.New(), Name: name, Slug: slug, IsActive: true}
	f.tenants[t.ID] = t
	return t
}

func (f *fakeStore) addMember(tenantID uuid.UUID, email string, role model.Role) *model.User {
	u := &model.User{ID: uuid.New(), Email: email, IsActive: true}
	f.userEmails[strings.ToLower(email)] = u.ID
	f.memberships = append(f.memberships, &model.TenantUser{
		ID: uuid.New(), TenantID: tenantID, UserID: u.ID, Role: role, IsActive: true,
	})
	return u
}

func (f *fakeStore) CreateInvitation(_ context.Context, inv *model.Invitation) error {
	for _, existing := range f.invitations {
		if existing.TenantID == inv.TenantID &&
			strings.EqualFold(existing.Email, inv.Email) &&
			existing.Status == model.InvitationPending {
			return storage.ErrDuplicatePending
		}
	}
	cp := *inv
	f.invitations[inv.ID] = &cp
	return nil
}

func (f *fakeStore) InvitationByToken(_ context.Context, token string) (*model.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) InvitationByID(_ context.Context, tenantID, id uuid.UUID) (*model.Invitation, error) {
	inv, ok := f.invitations[id]
	if !ok || inv.TenantID != tenantID {
		return nil, storage.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) ListInvitations(_ context.Context, tenantID uuid.UUID) ([]model.Invitation, error) {
	var out []model.Invitation
	for _, inv := range f.invitations {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) ExtendInvitation(_ context.Context, id uuid.UUID, until time.Time) error {
	inv, ok := f.invitations[id]
	if !ok || inv.Status != model.InvitationPending {
		return storage.ErrNotPending
	}
	inv.ExpiresAt = until
	return nil
}

func (f *fakeStore) RevokeInvitation(_ context.Context, id uuid.UUID) error {
	inv, ok := f.invitations[id]
	if !ok || inv.Status != model.InvitationPending {
		return storage.ErrNotPending
	}
	inv.Status = model.InvitationRevoked
	return nil
}

func (f *fakeStore) AcceptInvitation(_ context.Context, token string, p storage.AcceptParams) (*storage.AcceptResult, error) {
	var inv *model.Invitation
	for _, candidate := range f.invitations {
		if candidate.Token == token {
			inv = candidate
			break
		}
	}
	if inv == nil {
		return nil, storage.ErrNotFound
	}
	switch inv.Status {
	case model.InvitationAccepted:
		return nil, storage.ErrAlreadyUsed
	case model.InvitationRevoked:
		return nil, storage.ErrRevoked
	case model.InvitationExpired:
		return nil, storage.ErrExpired
	}
	if inv.Expired(p.Now) {
		inv.Status = model.InvitationExpired
		return nil, storage.ErrExpired
	}
	if !strings.EqualFold(inv.Email, p.Email) {
		return nil, storage.ErrEmailMismatch
	}
	if _, taken := f.userEmails[strings.ToLower(p.Email)]; taken {
		return nil, storage.ErrEmailTaken
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FullName:     p.FullName,
		IsActive:     true,
		IsStaff:      inv.Role == model.RoleOwner,
		CreatedAt:    p.Now,
	}
	f.userEmails[strings.ToLower(p.Email)] = user.ID
	member := &model.TenantUser{
		ID: uuid.New(), TenantID: inv.TenantID, UserID: user.ID,
		Role: inv.Role, IsActive: true, CreatedAt: p.Now,
	}
	f.memberships = append(f.memberships, member)

	now := p.Now
	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &now
	inv.AcceptedBy = &user.ID

	cp := *inv
	return &storage.AcceptResult{
		Invitation: &cp,
		User:       user,
		Membership: member,
		Tenant:     f.tenants[inv.TenantID],
	}, nil
}

func (f *fakeStore) ActiveMemberByEmail(_ context.Context, tenantID uuid.UUID, email string) (bool, error) {
	id, ok := f.userEmails[strings.ToLower(email)]
	if !ok {
		return false, nil
	}
	for _, m := range f.memberships {
		if m.TenantID == tenantID && m.UserID == id && m.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ActiveMembership(_ context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error) {
	for _, m := range f.memberships {
		if m.TenantID == tenantID && m.UserID == userID && m.IsActive {
			return m, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) ActiveTenantByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok || !t.IsActive {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

type fakeNotifier struct {
	published []string // tenant names, one per publish
}

func (n *fakeNotifier) PublishInvitation(_ *model.Invitation, tenantName string) error {
	n.published = append(n.published, tenantName)
	return nil
}

const testExpiry = 7 * 24 * time.Hour

func newTestService(store *fakeStore, notifier Notifier) *Service {
	return NewService(store, notifier, testExpiry, zap.NewNop())
}

func TestCreateInvitation(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	before := time.Now()
	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleManager, "welcome")
	require.NoError(t, err)

	assert.Equal(t, model.InvitationPending, inv.Status)
	assert.Equal(t, model.RoleManager, inv.Role)
	assert.Equal(t, "new@acme.test", inv.Email)
	require.NotNil(t, inv.InvitedBy)
	assert.Equal(t, owner.ID, *inv.InvitedBy)
	assert.WithinDuration(t, before.Add(testExpiry), inv.ExpiresAt, 5*time.Second)
	// URL-safe, high-entropy token.
	assert.Len(t, inv.Token, 43)
	assert.NotContains(t, inv.Token, "+")
	assert.NotContains(t, inv.Token, "/")
	assert.Equal(t, []string{"Acme"}, notifier.published)
}

func TestCreateInvitationInvalidRole(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	_, err := svc.Create(context.Background(), acme, owner, "new@acme.test", "superadmin", "")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateInvitationRequiresOwnerOrAdmin(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	manager := store.addMember(acme.ID, "manager@acme.test", model.RoleManager)
	svc := newTestService(store, nil)

	_, err := svc.Create(context.Background(), acme, manager, "new@acme.test", model.RoleUser, "")
	assert.ErrorIs(t, err, ErrInviterForbidden)

	// A platform operator may invite without a membership.
	operator := &model.User{ID: uuid.New(), IsSuperuser: true}
	_, err = svc.Create(context.Background(), acme, operator, "new@acme.test", model.RoleUser, "")
	assert.NoError(t, err)
}

func TestCreateInvitationExistingMember(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	store.addMember(acme.ID, "member@acme.test", model.RoleUser)
	svc := newTestService(store, nil)

	_, err := svc.Create(context.Background(), acme, owner, "Member@acme.test", model.RoleUser, "")
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestCreateInvitationDuplicatePending(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	first, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	assert.ErrorIs(t, err, storage.ErrDuplicatePending)

	// Once the pending invitation is revoked the pair is free again.
	require.NoError(t, svc.Revoke(context.Background(), acme, owner, first.ID))
	_, err = svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	assert.NoError(t, err)
}

func TestValidateStates(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleManager, "hi")
	require.NoError(t, err)

	summary, err := svc.Validate(context.Background(), inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "Acme", summary.TenantName)
	assert.Equal(t, "new@acme.test", summary.Email)
	assert.Equal(t, model.RoleManager, summary.Role)
	assert.Equal(t, "hi", summary.Message)

	_, err = svc.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, svc.Revoke(context.Background(), acme, owner, inv.ID))
	_, err = svc.Validate(context.Background(), inv.Token)
	assert.ErrorIs(t, err, storage.ErrRevoked)
}

func TestValidateExpiredByTime(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)

	// Stored status stays pending; expiry is evaluated lazily against now.
	svc.now = func() time.Time { return time.Now().Add(testExpiry + time.Hour) }
	_, err = svc.Validate(context.Background(), inv.Token)
	assert.ErrorIs(t, err, storage.ErrExpired)

	_, err = svc.Accept(context.Background(), inv.Token, "new@acme.test", "secret123", "New User")
	assert.ErrorIs(t, err, storage.ErrExpired)
}

func TestAcceptCreatesMembershipWithInvitedRole(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleManager, "")
	require.NoError(t, err)

	res, err := svc.Accept(context.Background(), inv.Token, "new@acme.test", "secret123", "New User")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, res.Membership.Role)
	assert.Equal(t, model.InvitationAccepted, res.Invitation.Status)
	require.NotNil(t, res.Invitation.AcceptedBy)
	assert.Equal(t, res.User.ID, *res.Invitation.AcceptedBy)
	assert.False(t, res.User.IsStaff)

	// Single use: the second accept observes the transitioned state.
	_, err = svc.Accept(context.Background(), inv.Token, "new@acme.test", "secret123", "New User")
	assert.ErrorIs(t, err, storage.ErrAlreadyUsed)

	_, err = svc.Validate(context.Background(), inv.Token)
	assert.ErrorIs(t, err, storage.ErrAlreadyUsed)
}

func TestAcceptEmailMismatch(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), inv.Token, "someone-else@acme.test", "secret123", "")
	assert.ErrorIs(t, err, storage.ErrEmailMismatch)

	// Case differences are not a mismatch.
	_, err = svc.Accept(context.Background(), inv.Token, "NEW@acme.test", "secret123", "")
	assert.NoError(t, err)
}

func TestAcceptOwnerGrantsStaff(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "cofounder@acme.test", model.RoleOwner, "")
	require.NoError(t, err)

	res, err := svc.Accept(context.Background(), inv.Token, "cofounder@acme.test", "secret123", "Co Founder")
	require.NoError(t, err)
	assert.True(t, res.User.IsStaff)
}

func TestResendExtendsExpiryKeepsToken(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	resent, err := svc.Resend(context.Background(), acme, owner, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Token, resent.Token)
	assert.True(t, resent.ExpiresAt.After(inv.ExpiresAt))
	assert.Len(t, notifier.published, 2)
}

func TestResendNonPending(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), acme, owner, inv.ID))

	_, err = svc.Resend(context.Background(), acme, owner, inv.ID)
	assert.ErrorIs(t, err, storage.ErrNotPending)
}

func TestRevokeBlocksAccept(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	owner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, owner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), acme, owner, inv.ID))

	_, err = svc.Accept(context.Background(), inv.Token, "new@acme.test", "secret123", "")
	assert.ErrorIs(t, err, storage.ErrRevoked)
}

func TestRevokeCrossTenantNotFound(t *testing.T) {
	store := newFakeStore()
	acme := store.addTenant("Acme", "acme")
	other := store.addTenant("Other", "other")
	acmeOwner := store.addMember(acme.ID, "owner@acme.test", model.RoleOwner)
	otherOwner := store.addMember(other.ID, "owner@other.test", model.RoleOwner)
	svc := newTestService(store, nil)

	inv, err := svc.Create(context.Background(), acme, acmeOwner, "new@acme.test", model.RoleUser, "")
	require.NoError(t, err)

	// Another tenant's admin cannot address the invitation; reported as
	// not found, not forbidden.
	err = svc.Revoke(context.Background(), other, otherOwner, inv.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokensAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
