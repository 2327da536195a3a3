package audit

import (
	"context"
	"time"
)

// Action names the kind of change recorded.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionRegister Action = "register"
)

// Event adalah satu entri audit log.
type Event struct {
	ID       string         `json:"id"`
	ActorID  string         `json:"actorId,omitempty"`
	Action   Action         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId,omitempty"`
	At       time.Time      `json:"at"`
	Details  map[string]any `json:"details,omitempty"`
}

// Recorder accepts audit events without affecting the caller's response.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// NopRecorder membuang semua event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Event) {}

// Filters menampung filter listing audit.
type Filters struct {
	ActorID  string
	Entity   string
	EntityID string
	Action   string
	From     time.Time
	To       time.Time
}
