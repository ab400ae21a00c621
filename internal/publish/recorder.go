package publish

import (
	"context"

	"github.com/dokzlo13/deskops/internal/reconcile"
)

// EventType names a publish audit event.
type EventType string

// Event types
const (
	EventRunStarted     EventType = "run_started"
	EventGroupCreated   EventType = "group_created"
	EventServiceCreated EventType = "service_created"
	EventPublishFailed  EventType = "publish_failed"
	EventRunCompleted   EventType = "run_completed"
)

// Event is one audit record of a publish run.
type Event struct {
	RunID    string
	Account  string
	DryRun   bool
	Type     EventType
	Kind     reconcile.Kind
	Name     string
	Group    string
	SourceID int64
	TargetID *int64
	Payload  any
	Error    string
}

// Recorder persists publish events. Failures are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// NopRecorder discards events.
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(context.Context, Event) error { return nil }
