package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	jobmetrics "github.com/grand-nerud/backoffice/internal/jobs"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// AuditJob stores queued audit events and applies retention.
type AuditJob struct {
	Service *audit.Service
	Logger  *zap.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditJob initialises the audit handlers.
func NewAuditJob(service *audit.Service, logger *zap.Logger, metrics *jobmetrics.Metrics) *AuditJob {
	return &AuditJob{Service: service, Logger: logger, Metrics: metrics}
}

func (j *AuditJob) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

// HandleRecord processes TaskAuditRecord tasks.
func (j *AuditJob) HandleRecord(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("audit record: handler not configured")
	}
	tracker := j.Metrics.Track(TaskAuditRecord)
	defer func() { err = tracker.End(err) }()

	var event audit.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		j.logger().Warn("audit record payload rejected", zap.Error(err))
		return fmt.Errorf("decode audit event: %v: %w", err, asynq.SkipRetry)
	}
	if _, err := j.Service.Store(ctx, event); err != nil {
		if errors.Is(err, shared.ErrValidation) {
			j.logger().Warn("audit event rejected", zap.String("entity", event.Entity), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// HandlePurge processes TaskAuditPurge tasks.
func (j *AuditJob) HandlePurge(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("audit purge: handler not configured")
	}
	tracker := j.Metrics.Track(TaskAuditPurge)
	defer func() { err = tracker.End(err) }()

	var payload AuditPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode purge payload: %v: %w", err, asynq.SkipRetry)
	}
	removed, err := j.Service.Purge(ctx, payload.Retention)
	if err != nil {
		return err
	}
	j.Metrics.AddPurged(audit.CollectionName, removed)
	j.logger().Info("audit log purged", zap.Int64("removed", removed), zap.Duration("retention", payload.Retention))
	return nil
}
