package model

import (
	"context"
	"time"
)

// EventType names an emitted event.
type EventType string

const (
	// EventUserUpdated is emitted when a synced record differs from the cached one.
	EventUserUpdated EventType = "user.updated"
	// EventUserDeleted is emitted when the directory no longer returns a user.
	EventUserDeleted EventType = "user.deleted"
	// EventBatchSyncCompleted is emitted once per batch call.
	EventBatchSyncCompleted EventType = "user.batch_sync_completed"
)

// Event is a notification handed to event sinks.
type Event interface {
	Type() EventType
	Meta() EventMeta
}

// EventMeta is common to every event.
type EventMeta struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserUpdated carries both snapshots of a changed user. Critical is set when
// a key field (name, contact data, status, departments, leader, tenant
// manager flag) changed.
type UserUpdated struct {
	EventMeta
	ID        string      `json:"id"`
	IDType    IDType      `json:"id_type"`
	Critical  bool        `json:"critical"`
	OldRecord *UserRecord `json:"old_record"`
	NewRecord *UserRecord `json:"new_record"`
}

// Type implements Event.
func (UserUpdated) Type() EventType { return EventUserUpdated }

// Meta implements Event.
func (e UserUpdated) Meta() EventMeta { return e.EventMeta }

// UserDeleted announces a user that disappeared upstream.
type UserDeleted struct {
	EventMeta
	ID     string `json:"id"`
	IDType IDType `json:"id_type"`
}

// Type implements Event.
func (UserDeleted) Type() EventType { return EventUserDeleted }

// Meta implements Event.
func (e UserDeleted) Meta() EventMeta { return e.EventMeta }

// BatchSyncCompleted carries the outcome of one batch call.
type BatchSyncCompleted struct {
	EventMeta
	IDs    []string     `json:"ids"`
	IDType IDType       `json:"id_type"`
	Result *BatchResult `json:"result"`
}

// Type implements Event.
func (BatchSyncCompleted) Type() EventType { return EventBatchSyncCompleted }

// Meta implements Event.
func (e BatchSyncCompleted) Meta() EventMeta { return e.EventMeta }

// EventSink delivers events. Delivery is fire-and-forget for callers.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
