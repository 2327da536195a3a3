package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
)

// ActorFunc resolves the id of the caller for audit records.
type ActorFunc func(r *http.Request) string

// Handler manages user administration endpoints. Routes are expected to be
// mounted behind the admin gate.
type Handler struct {
	logger    *zap.Logger
	service   *Service
	validator *validator.Validate
	audit     audit.Recorder
	actor     ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder, actor ActorFunc) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if actor == nil {
		actor = func(*http.Request) string { return "" }
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), audit: recorder, actor: actor}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, err := h.service.List(r.Context(), params)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: h.actor(r), Action: audit.ActionUpdate, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Delete(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: h.actor(r), Action: audit.ActionDelete, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, user)
}
