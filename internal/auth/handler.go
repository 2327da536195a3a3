package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/users"
)

// CookieConfig controls the access token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// HandlerConfig groups Handler collaborators.
type HandlerConfig struct {
	Logger         *zap.Logger
	Service        *Service
	Users          *users.Service
	Middleware     *Middleware
	Cookie         CookieConfig
	LoginPerMinute int
	Audit          audit.Recorder
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *zap.Logger
	service        *Service
	users          *users.Service
	middleware     *Middleware
	cookie         CookieConfig
	loginPerMinute int
	audit          audit.Recorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Audit == nil {
		cfg.Audit = audit.NopRecorder{}
	}
	return &Handler{
		logger:         cfg.Logger,
		service:        cfg.Service,
		users:          cfg.Users,
		middleware:     cfg.Middleware,
		cookie:         cfg.Cookie,
		loginPerMinute: cfg.LoginPerMinute,
		audit:          cfg.Audit,
		validator:      httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	if h.loginPerMinute > 0 {
		r.With(httprate.LimitByIP(h.loginPerMinute, time.Minute)).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireUser)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.With(h.middleware.AdminOnly).Get("/all", h.handleAll)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: user.ID, Action: audit.ActionRegister, Entity: users.CollectionName, EntityID: user.ID})
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, token, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if h.middleware != nil && h.middleware.observer != nil {
			h.middleware.observer.AuthFailure(failureReason(err))
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	http.SetCookie(w, h.newCookie(token.Value, int(h.service.TokenTTL().Seconds())))
	h.audit.Record(r.Context(), audit.Event{ActorID: user.ID, Action: audit.ActionLogin, Entity: users.CollectionName, EntityID: user.ID})
	httpx.JSON(w, http.StatusOK, LoginResponse{AccessToken: token.Value, TokenType: "cookie"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := tokenFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), token); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
	}
	http.SetCookie(w, h.newCookie("", -1))
	actor := ActorID(r)
	h.audit.Record(r.Context(), audit.Event{ActorID: actor, Action: audit.ActionLogout, Entity: users.CollectionName, EntityID: actor})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, UserFromContext(r.Context()))
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, err := h.users.List(r.Context(), params)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
