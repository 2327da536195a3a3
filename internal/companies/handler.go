package companies

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
)

// Handler exposes company endpoints.
type Handler struct {
	logger    *zap.Logger
	service   *Service
	validator *validator.Validate
	audit     audit.Recorder
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), audit: recorder}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/get_company_info/{inn}", h.lookup)
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
	q := r.URL.Query()
	filters := Filters{Name: q.Get("name"), INN: q.Get("inn"), Type: q.Get("type")}
	page, err := h.service.List(r.Context(), filters, params)
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
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	company, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionCreate, Entity: CollectionName, EntityID: company.ID})
	httpx.JSON(w, http.StatusCreated, company)
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
	company, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionUpdate, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
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
	company, err := h.service.Delete(r.Context(), id, check)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionDelete, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.Lookup(r.Context(), chi.URLParam(r, "inn"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}
