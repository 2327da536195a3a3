package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/shared"
	"github.com/grand-nerud/backoffice/internal/users"
	_ "github.com/grand-nerud/backoffice/testing"
)

const cookieName = "backoffice_access_token"

type stubRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*users.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*users.User{}}
}

func (s *stubRepo) add(t *testing.T, email, password string, admin bool) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := s.Create(context.Background(), users.User{Name: "N", LastName: "L", Email: email, PasswordHash: string(hash), Admin: admin})
	require.NoError(t, err)
	return user
}

func (s *stubRepo) Create(ctx context.Context, user users.User) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	user.ID = fmt.Sprintf("%024x", s.seq)
	s.users[user.ID] = &user
	out := user
	return &out, nil
}

func (s *stubRepo) Get(ctx context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && !u.IsDeleted {
			out := *u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	return err == nil, nil
}

func (s *stubRepo) List(ctx context.Context, params shared.ListParams) (shared.Page[users.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []users.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return shared.NewPage(out, int64(len(out)), params.Skip, params.Limit), nil
}

func (s *stubRepo) Update(ctx context.Context, id string, updates map[string]interface{}) (*users.User, error) {
	return s.Get(ctx, id)
}

func (s *stubRepo) SoftDelete(ctx context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	u.IsDeleted = true
	out := *u
	return &out, nil
}

type fixture struct {
	repo   *stubRepo
	router chi.Router
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo()
	accounts := users.NewService(repo)
	service := auth.NewService(accounts, auth.NewTokens("test-secret", 30*time.Minute), auth.NewRedisDenylist(client))
	middleware := auth.NewMiddleware(service, cookieName, nil, nil)
	handler := auth.NewHandler(auth.HandlerConfig{
		Service:    service,
		Users:      accounts,
		Middleware: middleware,
		Cookie:     auth.CookieConfig{Name: cookieName},
	})

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	r.With(middleware.RequireAdmin).Get("/admin-only", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &fixture{repo: repo, router: r, redis: mr}
}

func (f *fixture) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rr := f.do(http.MethodPost, "/auth/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("login did not set %s", cookieName)
	return nil
}

func problemDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem.Detail
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.repo.add(t, "manager@example.com", "right-password", false)

	rr := f.do(http.MethodPost, "/auth/login", `{"email":"manager@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "incorrect email or password", problemDetail(t, rr))

	rr = f.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "incorrect email or password", problemDetail(t, rr))
}

func TestLoginSetsCookie(t *testing.T) {
	f := newFixture(t)
	f.repo.add(t, "manager@example.com", "right-password", false)

	cookie := f.login(t, "manager@example.com", "right-password")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1800, cookie.MaxAge)

	rr := f.do(http.MethodGet, "/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"manager@example.com"`)
}

func TestTokenStateMachine(t *testing.T) {
	f := newFixture(t)
	user := f.repo.add(t, "manager@example.com", "right-password", false)

	rr := f.do(http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "token is absent", problemDetail(t, rr))

	rr = f.do(http.MethodGet, "/auth/me", "", &http.Cookie{Name: cookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "incorrect token format", problemDetail(t, rr))

	cookie := f.login(t, "manager@example.com", "right-password")
	_, err := f.repo.SoftDelete(context.Background(), user.ID)
	require.NoError(t, err)

	rr = f.do(http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "user is not present", problemDetail(t, rr))
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	f.repo.add(t, "manager@example.com", "right-password", false)
	cookie := f.login(t, "manager@example.com", "right-password")

	rr := f.do(http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, f.redis.Keys(), 1)

	rr = f.do(http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "token expired", problemDetail(t, rr))
}

func TestNonAdminRejectedFromAdminRoutes(t *testing.T) {
	f := newFixture(t)
	f.repo.add(t, "manager@example.com", "right-password", false)
	f.repo.add(t, "admin@example.com", "admin-password", true)

	managerCookie := f.login(t, "manager@example.com", "right-password")
	for _, path := range []string{"/auth/all", "/admin-only"} {
		rr := f.do(http.MethodGet, path, "", managerCookie)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, "user is not present", problemDetail(t, rr), path)
	}

	adminCookie := f.login(t, "admin@example.com", "admin-password")
	rr := f.do(http.MethodGet, "/auth/all", "", adminCookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":2`)
}

func TestRegisterConflict(t *testing.T) {
	f := newFixture(t)
	body := `{"name":"Ivan","lastName":"Petrov","email":"ivan@example.com","password":"long-enough"}`

	rr := f.do(http.MethodPost, "/auth/register", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")

	rr = f.do(http.MethodPost, "/auth/register", strings.Replace(body, "ivan@", "IVAN@", 1))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "user already exists", problemDetail(t, rr))
}
