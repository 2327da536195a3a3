package users

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grand-nerud/backoffice/internal/shared"
)

type mockRepository struct {
	mu    sync.Mutex
	seq   int
	users map[string]*User
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: map[string]*User{}}
}

func (m *mockRepository) Create(ctx context.Context, user User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	user.ID = fmt.Sprintf("%024x", m.seq)
	m.users[user.ID] = &user
	out := user
	return &out, nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && !u.IsDeleted {
			out := *u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockRepository) List(ctx context.Context, params shared.ListParams) (shared.Page[User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return shared.NewPage(out, int64(len(out)), params.Skip, params.Limit), nil
}

func (m *mockRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			u.Name = v.(string)
		case "lastName":
			u.LastName = v.(string)
		case "fatherName":
			u.FatherName = v.(string)
		case "admin":
			u.Admin = v.(bool)
		case "profitSettings":
			u.ProfitSettings = v.(map[string]decimal.Decimal)
		}
	}
	out := *u
	return &out, nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.IsDeleted = true
	out := *u
	return &out, nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	svc := NewService(repo)
	svc.bcryptCost = bcrypt.MinCost
	return svc, repo
}

func registerInput(email string) RegisterInput {
	return RegisterInput{Name: "Ivan", LastName: "Petrov", Email: email, Password: "s3cret-pass"}
}

func TestRegisterNormalizesEmailAndHashesPassword(t *testing.T) {
	svc, _ := newTestService()

	user, err := svc.Register(context.Background(), registerInput("  Ivan@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", user.Email)
	assert.False(t, user.Admin)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), registerInput("ivan@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerInput("IVAN@example.com"))
	assert.ErrorIs(t, err, ErrUserExists)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, "user already exists", err.Error())
}

func TestGetHidesDeletedUsers(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register(context.Background(), registerInput("a@b.c"))
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Delete(context.Background(), user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateValidatesProfitSettings(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register(context.Background(), registerInput("m@b.c"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), user.ID, UpdateInput{ProfitSettings: map[string]decimal.Decimal{"bogus": decimal.NewFromInt(5)}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), user.ID, UpdateInput{ProfitSettings: map[string]decimal.Decimal{DefaultProfitKey: decimal.NewFromInt(101)}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), user.ID, UpdateInput{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	serviceID := "65a1b2c3d4e5f60718293a4b"
	admin := true
	updated, err := svc.Update(context.Background(), user.ID, UpdateInput{
		Admin: &admin,
		ProfitSettings: map[string]decimal.Decimal{
			DefaultProfitKey: decimal.NewFromInt(10),
			serviceID:        decimal.RequireFromString("12.5"),
		},
	})
	require.NoError(t, err)
	assert.True(t, updated.Admin)
	assert.True(t, updated.ManagerPercent(serviceID).Equal(decimal.RequireFromString("12.5")))
	assert.True(t, updated.ManagerPercent("65a1b2c3d4e5f60718293fff").Equal(decimal.NewFromInt(10)))
}

func TestUpdateStoresCanonicalServiceKeys(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register(context.Background(), registerInput("case@b.c"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), user.ID, UpdateInput{
		ProfitSettings: map[string]decimal.Decimal{"65A1B2C3D4E5F60718293A4B": decimal.NewFromInt(30)},
	})
	require.NoError(t, err)
	assert.Contains(t, updated.ProfitSettings, "65a1b2c3d4e5f60718293a4b")
	assert.True(t, updated.ManagerPercent("65a1b2c3d4e5f60718293a4b").Equal(decimal.NewFromInt(30)))
	assert.True(t, updated.ManagerPercent("65A1B2C3D4E5F60718293A4B").Equal(decimal.NewFromInt(30)))

	_, err = svc.Update(context.Background(), user.ID, UpdateInput{
		ProfitSettings: map[string]decimal.Decimal{
			"65A1B2C3D4E5F60718293A4B": decimal.NewFromInt(30),
			"65a1b2c3d4e5f60718293a4b": decimal.NewFromInt(20),
		},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestManagerPercentFallsBackToZero(t *testing.T) {
	var nobody *User
	assert.True(t, nobody.ManagerPercent("x").IsZero())
	assert.True(t, (&User{}).ManagerPercent("x").IsZero())
}

func TestHandlerHidesPasswordHash(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register(context.Background(), registerInput("h@b.c"))
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(nil, svc, nil, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/"+user.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"h@b.c"`)
	assert.NotContains(t, rr.Body.String(), "$2a$")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/"+user.ID, strings.NewReader(`{"name":"Pyotr"}`))
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Pyotr"`)
}
