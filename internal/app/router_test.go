package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/shared"
	"github.com/grand-nerud/backoffice/internal/users"
)

const testCookie = "backoffice_access_token"

type directory map[string]*users.User

func (d directory) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range d {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (d directory) Get(ctx context.Context, id string) (*users.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

type okMounter struct{}

func (okMounter) MountRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

type routerFixture struct {
	handler http.Handler
	tokens  *auth.Tokens
}

func newRouterFixture(t *testing.T, ready func(context.Context) error) *routerFixture {
	t.Helper()
	dir := directory{
		"000000000000000000000001": {ID: "000000000000000000000001", Email: "admin@example.com", Admin: true},
		"000000000000000000000002": {ID: "000000000000000000000002", Email: "manager@example.com"},
	}
	tokens := auth.NewTokens("router-secret", 30*time.Minute)
	service := auth.NewService(dir, tokens, nil)
	handler := NewRouter(RouterParams{
		Config:     &Config{AppEnv: "test", RateLimitPerMinute: 0},
		Auth:       auth.NewMiddleware(service, testCookie, nil, nil),
		MasterData: []Resource{{Paths: []string{"/materials"}, Handler: okMounter{}}, {Paths: []string{"/adresses", "/addresses"}, Handler: okMounter{}}},
		Ready:      ready,
	})
	return &routerFixture{handler: handler, tokens: tokens}
}

func (f *routerFixture) get(t *testing.T, path, subject string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if subject != "" {
		token, err := f.tokens.Issue(subject)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token.Value})
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	f := newRouterFixture(t, nil)
	rr := f.get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = f.get(t, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = f.get(t, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "json")
}

func TestReadinessFailure(t *testing.T) {
	f := newRouterFixture(t, func(context.Context) error { return errors.New("mongo down") })
	rr := f.get(t, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAdminGate(t *testing.T) {
	f := newRouterFixture(t, nil)

	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/materials", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/materials", "000000000000000000000002").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/materials", "000000000000000000000001").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/adresses", "000000000000000000000001").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/addresses", "000000000000000000000001").Code)
}
