package audit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// Handler mengekspos endpoint audit log.
type Handler struct {
	logger  *zap.Logger
	service *Service
}

// NewHandler builds the audit handler.
func NewHandler(logger *zap.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes mendaftarkan route audit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ListParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	filters := Filters{
		ActorID:  q.Get("actorId"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entityId"),
		Action:   q.Get("action"),
	}
	if filters.From, err = parseTime(q.Get("from")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if filters.To, err = parseTime(q.Get("to")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, err := h.service.List(r.Context(), filters, params)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, shared.NewError(shared.ErrValidation, "time must be RFC3339: "+raw)
	}
	return t, nil
}
