// Package events builds sync events and delivers them to sinks.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/metrics"
	"github.com/dtroode/dirsync/internal/model"
)

// Delivery statuses reported to metrics.
const (
	statusDelivered = "delivered"
	statusFailed    = "failed"
)

// Dispatcher fans events out to sinks. Delivery is fire-and-forget: sink
// errors are logged and counted, never returned and never retried.
type Dispatcher struct {
	sinks  []model.EventSink
	now    func() time.Time
	logger *logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(logger *logger.Logger, sinks ...model.EventSink) *Dispatcher {
	return &Dispatcher{
		sinks:  sinks,
		now:    time.Now,
		logger: logger,
	}
}

// Dispatch delivers event to every sink.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.Event) {
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			metrics.RecordEvent(string(event.Type()), statusFailed)
			d.logger.Error("Event dispatcher: failed to publish event",
				"event_type", event.Type(),
				"event_id", event.Meta().EventID,
				"error", err,
			)
			continue
		}
		metrics.RecordEvent(string(event.Type()), statusDelivered)
	}
}

// UserUpdated dispatches an update carrying both snapshots.
func (d *Dispatcher) UserUpdated(ctx context.Context, key model.Key, oldRecord, newRecord *model.UserRecord, critical bool) {
	d.Dispatch(ctx, model.UserUpdated{
		EventMeta: d.meta(),
		ID:        key.ID,
		IDType:    key.Type,
		Critical:  critical,
		OldRecord: oldRecord,
		NewRecord: newRecord,
	})
}

// UserDeleted dispatches a deletion.
func (d *Dispatcher) UserDeleted(ctx context.Context, key model.Key) {
	d.Dispatch(ctx, model.UserDeleted{
		EventMeta: d.meta(),
		ID:        key.ID,
		IDType:    key.Type,
	})
}

// BatchSyncCompleted dispatches the outcome of a batch call.
func (d *Dispatcher) BatchSyncCompleted(ctx context.Context, ids []string, idType model.IDType, result *model.BatchResult) {
	d.Dispatch(ctx, model.BatchSyncCompleted{
		EventMeta: d.meta(),
		IDs:       ids,
		IDType:    idType,
		Result:    result,
	})
}

func (d *Dispatcher) meta() model.EventMeta {
	return model.EventMeta{
		EventID:    uuid.NewString(),
		OccurredAt: d.now().UTC(),
	}
}
