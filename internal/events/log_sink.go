package events

import (
	"context"

	"github.com/dtroode/dirsync/internal/changes"
	"github.com/dtroode/dirsync/internal/collector"
	"github.com/dtroode/dirsync/internal/format"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

// LogSink writes events to the application log.
type LogSink struct {
	detector *changes.Detector
	logger   *logger.Logger
}

var _ model.EventSink = (*LogSink)(nil)

// NewLogSink creates a LogSink.
func NewLogSink(logger *logger.Logger) *LogSink {
	return &LogSink{
		detector: changes.NewDetector(),
		logger:   logger,
	}
}

// Publish implements model.EventSink.
func (s *LogSink) Publish(_ context.Context, event model.Event) error {
	meta := event.Meta()

	switch e := event.(type) {
	case model.UserUpdated:
		summary := s.detector.GetChangeSummary(e.OldRecord, e.NewRecord)
		s.logger.Info("Event: user updated",
			"event_id", meta.EventID,
			"id", format.MaskID(e.ID, e.IDType),
			"id_type", e.IDType,
			"critical", e.Critical,
			"changed_fields", summary.ChangedFields,
			"critical_changes", summary.CriticalChanges,
		)
	case model.UserDeleted:
		s.logger.Info("Event: user deleted",
			"event_id", meta.EventID,
			"id", format.MaskID(e.ID, e.IDType),
			"id_type", e.IDType,
		)
	case model.BatchSyncCompleted:
		summary := collector.Summary(e.Result)
		s.logger.Info("Event: batch sync completed",
			"event_id", meta.EventID,
			"id_type", e.IDType,
			"total", summary.Total,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"success_rate", summary.SuccessRate,
		)
	default:
		s.logger.Info("Event", "event_id", meta.EventID, "event_type", event.Type())
	}
	return nil
}
