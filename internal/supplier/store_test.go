package supplier

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantcore/internal/model"
	"tenantcore/internal/storage"
	"tenantcore/internal/tenant"
)

type execCall struct {
	query string
	args  []any
}

// fakeQuerier records exec calls and serves a canned rows-affected count.
// Query paths that need real *sql.Rows are covered by the integration suite.
type fakeQuerier struct {
	execs    []execCall
	affected int64
}

type fakeResult struct{ n int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, nil }

func (q *fakeQuerier) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	q.execs = append(q.execs, execCall{query: query, args: args})
	return fakeResult{n: q.affected}, nil
}

func (q *fakeQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	panic("unexpected QueryContext")
}

func (q *fakeQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("unexpected QueryRowContext")
}

func scopeWith(t *model.Tenant, q *fakeQuerier) *tenant.Scope {
	res := tenant.Resolution{Tenant: t, Source: tenant.SourceHeader}
	if t == nil {
		res.Source = tenant.SourceNone
	}
	return tenant.NewScope(res, q)
}

func TestCreateAssignsResolvedTenant(t *testing.T) {
	acme := &model.Tenant{ID: uuid.New(), Name: "Acme", IsActive: true}
	q := &fakeQuerier{affected: 1}
	store := NewStore()

	// A tenant id smuggled in on the model is discarded.
	s := &model.Supplier{Name: "Parts Co", TenantID: uuid.New()}
	require.NoError(t, store.Create(context.Background(), scopeWith(acme, q), s))

	assert.Equal(t, acme.ID, s.TenantID)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.True(t, s.IsActive)

	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].query, "INSERT INTO suppliers")
	assert.Equal(t, acme.ID, q.execs[0].args[1])
}

func TestCreateWithoutTenant(t *testing.T) {
	q := &fakeQuerier{}
	err := NewStore().Create(context.Background(), scopeWith(nil, q), &model.Supplier{Name: "Parts Co"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, q.execs)
}

func TestListWithoutTenantIsEmpty(t *testing.T) {
	// No tenant short-circuits before any query runs; the fake panics if
	// touched.
	out, err := NewStore().List(context.Background(), scopeWith(nil, &fakeQuerier{}))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestGetWithoutTenant(t *testing.T) {
	_, err := NewStore().Get(context.Background(), scopeWith(nil, &fakeQuerier{}), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateScopedByTenant(t *testing.T) {
	acme := &model.Tenant{ID: uuid.New(), IsActive: true}
	q := &fakeQuerier{affected: 1}
	id := uuid.New()

	require.NoError(t, NewStore().Update(context.Background(), scopeWith(acme, q), id, "New Name", "n@x.test", ""))

	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].query, "tenant_id = $5")
	assert.Equal(t, acme.ID, q.execs[0].args[4])
}

func TestUpdateMissingRowNotFound(t *testing.T) {
	acme := &model.Tenant{ID: uuid.New(), IsActive: true}
	q := &fakeQuerier{affected: 0}

	err := NewStore().Update(context.Background(), scopeWith(acme, q), uuid.New(), "x", "", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteScopedByTenant(t *testing.T) {
	acme := &model.Tenant{ID: uuid.New(), IsActive: true}
	q := &fakeQuerier{affected: 1}
	id := uuid.New()

	require.NoError(t, NewStore().Delete(context.Background(), scopeWith(acme, q), id))

	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].query, "tenant_id = $2")
	assert.Equal(t, []any{id, acme.ID}, q.execs[0].args)
}

func TestDeleteMissingRowNotFound(t *testing.T) {
	acme := &model.Tenant{ID: uuid.New(), IsActive: true}
	q := &fakeQuerier{affected: 0}

	err := NewStore().Delete(context.Background(), scopeWith(acme, q), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
