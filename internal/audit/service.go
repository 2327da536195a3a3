package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Service stores and reads the audit log.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Store persists an event. The worker calls it.
func (s *Service) Store(ctx context.Context, event Event) (*Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if event.Entity == "" || event.Action == "" {
		return nil, shared.NewError(shared.ErrValidation, "audit event needs entity and action")
	}
	if event.At.IsZero() {
		event.At = s.now()
	}
	return s.repo.Insert(ctx, event)
}

// List returns a page of audit events.
func (s *Service) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Event], error) {
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return shared.Page[Event]{}, shared.NewError(shared.ErrValidation, "to must not be before from")
	}
	return s.repo.List(ctx, filters, params.Normalize())
}

// Purge removes events older than retention.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("audit: retention must be positive, got %s", retention)
	}
	return s.repo.DeleteBefore(ctx, s.now().Add(-retention))
}

// DirectRecorder writes events from a separate goroutine. It is used
// when the task queue is disabled.
type DirectRecorder struct {
	service *Service
	logger  *zap.Logger
	timeout time.Duration
}

// NewDirectRecorder builds a recorder that bypasses the queue.
func NewDirectRecorder(service *Service, logger *zap.Logger) *DirectRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectRecorder{service: service, logger: logger, timeout: 5 * time.Second}
}

// Record implements Recorder.
func (r *DirectRecorder) Record(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if _, err := r.service.Store(ctx, event); err != nil {
			r.logger.Warn("audit record dropped", zap.String("entity", event.Entity), zap.Error(err))
		}
	}()
}
