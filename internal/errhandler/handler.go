// Package errhandler classifies and logs sync failures.
package errhandler

import (
	"errors"

	"github.com/dtroode/dirsync/internal/format"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

// Handler logs failures with enough context to reconstruct them later.
type Handler struct {
	logger *logger.Logger
}

// New creates a Handler.
func New(logger *logger.Logger) *Handler {
	return &Handler{logger: logger}
}

// HandleSyncError logs a failed single-record sync and wraps err into a
// *model.SyncError. An err that already is a SyncError is returned as is.
func (h *Handler) HandleSyncError(op string, key model.Key, err error) error {
	if err == nil {
		return nil
	}

	var syncErr *model.SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	h.logger.Error("Sync failed",
		"op", op,
		"id", format.MaskID(key.ID, key.Type),
		"id_type", key.Type,
		"error", err,
	)
	return model.NewSyncError(op, key, err)
}

// HandleBatchError logs a transport failure for a whole chunk and returns
// the identifiers that must be reported as failed.
func (h *Handler) HandleBatchError(ids []string, idType model.IDType, err error) []string {
	h.logger.Error("Batch fetch failed",
		"id_type", idType,
		"count", len(ids),
		"error", err,
	)

	failed := make([]string, len(ids))
	copy(failed, ids)
	return failed
}

// HandleRecordError logs a per-record failure inside a batch.
func (h *Handler) HandleRecordError(key model.Key, err error) {
	h.logger.Warn("Record processing failed",
		"id", format.MaskID(key.ID, key.Type),
		"id_type", key.Type,
		"error", err,
	)
}

// FindMissing returns the requested ids absent from returned, in request order.
func FindMissing(requested []string, returned map[string]*model.UserRecord) []string {
	missing := make([]string, 0)
	for _, id := range requested {
		if _, ok := returned[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
