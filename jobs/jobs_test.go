package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-nerud/backoffice/internal/audit"
	jobmetrics "github.com/grand-nerud/backoffice/internal/jobs"
	"github.com/grand-nerud/backoffice/internal/shared"
)

type auditRepo struct {
	mu     sync.Mutex
	events []audit.Event
	cutoff time.Time
}

func (r *auditRepo) Insert(ctx context.Context, event audit.Event) (*audit.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return &event, nil
}

func (r *auditRepo) List(ctx context.Context, filters audit.Filters, params shared.ListParams) (shared.Page[audit.Event], error) {
	return shared.NewPage(r.events, int64(len(r.events)), params.Skip, params.Limit), nil
}

func (r *auditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return 4, nil
}

func TestClientRecordEnqueuesAuditTask(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	client := NewClient(opts, nil, metrics)
	defer client.Close()

	client.Record(context.Background(), audit.Event{ActorID: "u1", Action: audit.ActionCreate, Entity: "deals", EntityID: "d1"})

	inspector := asynq.NewInspector(opts)
	defer inspector.Close()
	tasks, err := inspector.ListPendingTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskAuditRecord, tasks[0].Type)

	var event audit.Event
	require.NoError(t, json.Unmarshal(tasks[0].Payload, &event))
	assert.Equal(t, "deals", event.Entity)
	assert.False(t, event.At.IsZero())
}

func TestClientRecordSwallowsQueueFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}, nil, nil)
	defer client.Close()
	mr.Close()

	assert.NotPanics(t, func() {
		client.Record(context.Background(), audit.Event{Action: audit.ActionDelete, Entity: "materials"})
	})
}

func TestHandleRecordStoresEvent(t *testing.T) {
	repo := &auditRepo{}
	job := NewAuditJob(audit.NewService(repo), nil, nil)

	task, err := NewAuditRecordTask(audit.Event{Action: audit.ActionUpdate, Entity: "companies", EntityID: "c1"})
	require.NoError(t, err)
	require.NoError(t, job.HandleRecord(context.Background(), task))
	require.Len(t, repo.events, 1)
	assert.Equal(t, "c1", repo.events[0].EntityID)
	assert.False(t, repo.events[0].At.IsZero())
}

func TestHandleRecordSkipsRetryOnBadEvents(t *testing.T) {
	job := NewAuditJob(audit.NewService(&auditRepo{}), nil, nil)

	err := job.HandleRecord(context.Background(), asynq.NewTask(TaskAuditRecord, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := NewAuditRecordTask(audit.Event{Entity: "deals"})
	require.NoError(t, err)
	err = job.HandleRecord(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlePurgeAppliesRetention(t *testing.T) {
	repo := &auditRepo{}
	job := NewAuditJob(audit.NewService(repo), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewAuditPurgeTask(48 * time.Hour)
	require.NoError(t, err)
	before := time.Now().UTC()
	require.NoError(t, job.HandlePurge(context.Background(), task))
	assert.WithinDuration(t, before.Add(-48*time.Hour), repo.cutoff, time.Minute)

	task, err = NewAuditPurgeTask(0)
	require.NoError(t, err)
	assert.Error(t, job.HandlePurge(context.Background(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"failed":0}`, rr.Body.String())
}
