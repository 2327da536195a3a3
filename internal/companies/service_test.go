package companies

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-nerud/backoffice/internal/companies/registry"
	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/shared"
)

type mockRepository struct {
	mu        sync.Mutex
	seq       int
	companies map[string]*Company
}

func newMockRepository() *mockRepository {
	return &mockRepository{companies: map[string]*Company{}}
}

func (m *mockRepository) Create(ctx context.Context, company Company) (*Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	company.ID = fmt.Sprintf("%024x", m.seq)
	m.companies[company.ID] = &company
	out := company
	return &out, nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.companies[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, ErrCompanyNotFound
}

func (m *mockRepository) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Company], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Company
	for _, c := range m.companies {
		if c.IsDeleted && !params.IncludeDeleted {
			continue
		}
		out = append(out, *c)
	}
	return shared.NewPage(out, int64(len(out)), params.Skip, params.Limit), nil
}

func (m *mockRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	if v, ok := updates["inn"].(string); ok {
		c.INN = v
	}
	if v, ok := updates["name"].(string); ok {
		c.Name = v
	}
	if v, ok := updates["contacts"].([]Contact); ok {
		c.Contacts = v
	}
	out := *c
	return &out, nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string) (*Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	c.IsDeleted = true
	out := *c
	return &out, nil
}

// INNTaken mirrors the store semantics: case-insensitive, trimmed, live only.
func (m *mockRepository) INNTaken(ctx context.Context, inn, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.companies {
		if id == excludeID || c.IsDeleted {
			continue
		}
		if docstore.NormalizeKey(c.INN) == docstore.NormalizeKey(inn) {
			return true, nil
		}
	}
	return false, nil
}

type stubDeps struct {
	referenced map[string]bool
	fields     []string
}

func (s *stubDeps) Referenced(ctx context.Context, id string, fields ...string) (bool, error) {
	s.fields = fields
	return s.referenced[id], nil
}

type stubRegistry struct {
	company *registry.Company
	err     error
}

func (s stubRegistry) Lookup(ctx context.Context, inn string) (*registry.Company, error) {
	return s.company, s.err
}

func newInput(inn string) CreateInput {
	return CreateInput{Name: "ООО Щебень", INN: inn, Type: "legal", Contacts: []ContactInput{{Kind: "email", Value: "info@example.ru"}}}
}

func TestCreateRejectsDuplicateINN(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, newInput("123"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newInput("123"))
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(ctx, newInput("  123 "))
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestINNFreedBySoftDelete(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, newInput("7707083893"))
	require.NoError(t, err)
	_, err = svc.Delete(ctx, first.ID, false)
	require.NoError(t, err)

	_, err = svc.Create(ctx, newInput("7707083893"))
	assert.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestUpdateKeepsOwnINN(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, newInput("111"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newInput("222"))
	require.NoError(t, err)

	same := "111"
	_, err = svc.Update(ctx, a.ID, UpdateInput{INN: &same})
	assert.NoError(t, err)

	taken := "222"
	_, err = svc.Update(ctx, a.ID, UpdateInput{INN: &taken})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteChecksDeals(t *testing.T) {
	deps := &stubDeps{referenced: map[string]bool{}}
	svc := NewService(newMockRepository(), deps, nil)
	ctx := context.Background()
	company, err := svc.Create(ctx, newInput("333"))
	require.NoError(t, err)
	deps.referenced[company.ID] = true

	_, err = svc.Delete(ctx, company.ID, true)
	assert.ErrorIs(t, err, ErrCompanyInUse)
	assert.Equal(t, []string{"customerId", "providerId"}, deps.fields)

	deleted, err := svc.Delete(ctx, company.ID, false)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
}

func TestHandlerRoutes(t *testing.T) {
	reg := stubRegistry{company: &registry.Company{Name: "ПАО", INN: "7707083893", Type: registry.TypeLegal, Contacts: []registry.Contact{}}}
	svc := NewService(newMockRepository(), nil, reg)
	r := chi.NewRouter()
	NewHandler(nil, svc, nil).MountRoutes(r)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rr
	}

	body := `{"name":"ООО Щебень","inn":"123","type":"legal","contacts":[{"kind":"director","value":"Иванов"}]}`
	rr := do(http.MethodPost, "/", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(http.MethodPost, "/", body)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(http.MethodPost, "/", `{"name":"x","inn":"1","type":"sole"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodGet, "/get_company_info/7707083893", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"type":"legal"`)

	rr = do(http.MethodDelete, "/65a1b2c3d4e5f60718293a4b?check_dependencies=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerLookupErrors(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{registry.ErrCompanyNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: registry status 500", shared.ErrUpstream), http.StatusBadGateway},
	} {
		svc := NewService(newMockRepository(), nil, stubRegistry{err: tc.err})
		r := chi.NewRouter()
		NewHandler(nil, svc, nil).MountRoutes(r)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/get_company_info/1", nil))
		assert.Equal(t, tc.code, rr.Code)
	}
}
