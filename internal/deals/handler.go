package deals

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// maxExportRows bounds a single workbook.
const maxExportRows = 10000

// ExportTruncatedHeader is set on exports that hit the row limit.
const ExportTruncatedHeader = "X-Export-Truncated"

// Handler exposes deal endpoints. Routes expect auth.Middleware.RequireUser.
type Handler struct {
	logger    *zap.Logger
	service   *Service
	validator *validator.Validate
	audit     audit.Recorder
	exportMax int
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, recorder audit.Recorder) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
		audit:     recorder,
		exportMax: maxExportRows,
	}
}

// MountRoutes registers deal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	f := Filters{
		UserID:     q.Get("userId"),
		ServiceID:  q.Get("serviceId"),
		CustomerID: q.Get("customerId"),
		StageID:    q.Get("stageId"),
		MaterialID: q.Get("materialId"),
	}
	for name, raw := range map[string]string{
		"userId": f.UserID, "serviceId": f.ServiceID, "customerId": f.CustomerID,
		"stageId": f.StageID, "materialId": f.MaterialID,
	} {
		if raw != "" && !shared.ValidID(raw) {
			return f, shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must be a 24-character hex identifier", name))
		}
	}
	if q.Get("OSSIG") != "" {
		v, err := httpx.QueryBool(r, "OSSIG")
		if err != nil {
			return f, err
		}
		f.OSSIG = &v
	}
	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, err := h.service.ListView(r.Context(), auth.UserFromContext(r.Context()), filters, params)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := auth.UserFromContext(r.Context())
	params.Skip, params.Limit = 0, shared.MaxPageSize

	var items []Deal
	truncated := false
	for {
		page, err := h.service.List(r.Context(), actor, filters, params)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		items = append(items, page.Items...)
		if len(items) > h.exportMax || (len(items) == h.exportMax && page.HasNext) {
			items, truncated = items[:h.exportMax], true
			break
		}
		if !page.HasNext {
			break
		}
		params.Skip += params.Limit
	}

	body, err := Export(items)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	filename := fmt.Sprintf("deals-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if truncated {
		w.Header().Set(ExportTruncatedHeader, "true")
		h.logger.Warn("deal export truncated", zap.Int("rows", len(items)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	view, err := h.service.View(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	deal, err := h.service.Create(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionCreate, Entity: CollectionName, EntityID: deal.ID})
	httpx.JSON(w, http.StatusCreated, deal)
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
	deal, err := h.service.Update(r.Context(), auth.UserFromContext(r.Context()), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionUpdate, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	deal, err := h.service.Delete(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.audit.Record(r.Context(), audit.Event{ActorID: auth.ActorID(r), Action: audit.ActionDelete, Entity: CollectionName, EntityID: id})
	httpx.JSON(w, http.StatusOK, deal)
}
