package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grand-nerud/backoffice/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord persists one audit event.
	TaskAuditRecord = "audit:record"
	// TaskAuditPurge removes audit events older than the retention window.
	TaskAuditPurge = "audit:purge"
)

// AuditPurgePayload describes how much audit history to keep.
type AuditPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditRecordTask constructs an Asynq task carrying event.
func NewAuditRecordTask(event audit.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewAuditPurgeTask constructs the retention task.
func NewAuditPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data), nil
}
