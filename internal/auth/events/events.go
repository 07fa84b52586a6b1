// Package events publishes resource lifecycle events so external auditing
// can observe every credential mutation and session transition.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/halcyonlabs/keywarden/pkg/idx"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event describes one mutation of a resource. IDs are ULIDs so events sort
// by emission order.
type Event struct {
	ID         string
	Tenant     string
	Resource   string // e.g. "credential", "session"
	ResourceID string
	Action     Action
	At         time.Time
}

// Publisher receives events after the mutation committed. Implementations
// must not fail the originating operation; delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// New stamps an event with a fresh id and timestamp.
func New(tenant, resource, resourceID string, action Action) Event {
	return Event{
		ID:         idx.NewEventID(),
		Tenant:     tenant,
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
		At:         time.Now().UTC(),
	}
}

// LogPublisher writes events to the log. Stands in for a message broker in
// development and tests.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	p.Logger.Info("resource event",
		"event_id", e.ID,
		"tenant", e.Tenant,
		"resource", e.Resource,
		"resource_id", e.ResourceID,
		"action", string(e.Action),
	)
}
