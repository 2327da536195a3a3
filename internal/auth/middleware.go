package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/users"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// FailureObserver counts rejected requests by reason.
type FailureObserver interface {
	AuthFailure(reason string)
}

// Middleware guards routes with the access token cookie.
type Middleware struct {
	service    *Service
	cookieName string
	logger     *zap.Logger
	observer   FailureObserver
}

// NewMiddleware builds the auth middleware.
func NewMiddleware(service *Service, cookieName string, logger *zap.Logger, observer FailureObserver) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{service: service, cookieName: cookieName, logger: logger, observer: observer}
}

// ContextWithUser stores the authenticated user on ctx.
func ContextWithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(userKey).(*users.User)
	return user
}

func tokenFromContext(ctx context.Context) (Token, bool) {
	token, ok := ctx.Value(tokenKey).(Token)
	return token, ok
}

// ActorID returns the id of the authenticated caller or an empty string.
func ActorID(r *http.Request) string {
	if user := UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ""
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if m.observer != nil {
		m.observer.AuthFailure(failureReason(err))
	}
	m.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	httpx.RespondError(w, m.logger, err)
}

// RequireUser admits requests carrying a valid token of a live user.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			raw = cookie.Value
		}
		user, token, err := m.service.Resolve(r.Context(), raw)
		if err != nil {
			m.reject(w, r, err)
			return
		}
		ctx := ContextWithUser(r.Context(), user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly rejects callers that are not administrators. It expects
// RequireUser to have run.
func (m *Middleware) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.Admin {
			m.reject(w, r, ErrUserNotPresent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits authenticated administrators only. Non-admins get the
// same 401 as an unknown user.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireUser(m.AdminOnly(next))
}
