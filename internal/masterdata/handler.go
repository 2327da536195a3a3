package masterdata

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
)

// Handler exposes the CRUD endpoints of one master data collection.
type Handler[T Document, C, U any] struct {
	logger    *zap.Logger
	service   *Service[T, C, U]
	validator *validator.Validate
	audit     audit.Recorder
}

// NewHandler builds Handler instance.
func NewHandler[T Document, C, U any](logger *zap.Logger, service *Service[T, C, U], recorder audit.Recorder) *Handler[T, C, U] {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Handler[T, C, U]{logger: logger, service: service, validator: httpx.NewValidator(), audit: recorder}
}

// MountRoutes registers collection routes.
func (h *Handler[T, C, U]) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler[T, C, U]) record(r *http.Request, action audit.Action, id string) {
	h.audit.Record(r.Context(), audit.Event{
		ActorID:  auth.ActorID(r),
		Action:   action,
		Entity:   h.service.def.Collection,
		EntityID: id,
	})
}

func (h *Handler[T, C, U]) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, err := h.service.List(r.Context(), r.URL.Query(), params)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler[T, C, U]) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler[T, C, U]) create(w http.ResponseWriter, r *http.Request) {
	var in C
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, audit.ActionCreate, (*doc).Identifier())
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler[T, C, U]) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in U
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, audit.ActionUpdate, id)
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler[T, C, U]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	check, err := httpx.QueryBool(r, "check_dependencies")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Delete(r.Context(), id, check)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, audit.ActionDelete, id)
	httpx.JSON(w, http.StatusOK, doc)
}
