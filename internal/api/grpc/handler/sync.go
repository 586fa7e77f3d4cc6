package handler

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/dirsync/internal/api/grpc/syncapi"
	"github.com/dtroode/dirsync/internal/cache"
	"github.com/dtroode/dirsync/internal/collector"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

// SyncService is the sync surface exposed over the admin API.
type SyncService interface {
	SyncUser(ctx context.Context, id string, idType model.IDType, force bool) (*model.UserRecord, error)
	BatchSyncUsers(ctx context.Context, ids []string, idType model.IDType, force bool) (*model.BatchResult, error)
	SyncDepartment(ctx context.Context, departmentID string, idType model.IDType, force bool) (*model.BatchResult, error)
	GetUser(ctx context.Context, id string, idType model.IDType) (*model.UserRecord, error)
	CacheStats() cache.Stats
	FlushDirty(ctx context.Context) (persisted, failed int)
}

// Sync implements syncapi.UserSyncServer on top of SyncService.
type Sync struct {
	service        SyncService
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ syncapi.UserSyncServer = (*Sync)(nil)

// NewSync creates the UserSync handler.
func NewSync(service SyncService, contextManager model.ContextManager, logger *logger.Logger) *Sync {
	return &Sync{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

type batchResponse struct {
	*model.BatchResult
	Summary model.BatchSummary `json:"summary"`
}

// SyncUser handles {id, id_type, force}.
func (h *Sync) SyncUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	id, idType, err := readKey(req)
	if err != nil {
		return nil, handleError(err)
	}
	force, err := req.bool("force")
	if err != nil {
		return nil, handleError(err)
	}

	h.audit(ctx, "sync_user", "id_type", idType, "force", force)

	record, err := h.service.SyncUser(ctx, id, idType, force)
	if err != nil {
		return nil, handleError(err)
	}
	return h.respond(record)
}

// BatchSyncUsers handles {ids, id_type, force}.
func (h *Sync) BatchSyncUsers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	ids, err := req.strings("ids")
	if err != nil {
		return nil, handleError(err)
	}
	idType, err := req.idType()
	if err != nil {
		return nil, handleError(err)
	}
	force, err := req.bool("force")
	if err != nil {
		return nil, handleError(err)
	}

	h.audit(ctx, "batch_sync_users", "id_type", idType, "count", len(ids), "force", force)

	result, err := h.service.BatchSyncUsers(ctx, ids, idType, force)
	if err != nil {
		return nil, handleError(err)
	}
	return h.respond(batchResponse{BatchResult: result, Summary: collector.Summary(result)})
}

// SyncDepartment handles {department_id, id_type, force}.
func (h *Sync) SyncDepartment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	departmentID, err := req.string("department_id")
	if err != nil {
		return nil, handleError(err)
	}
	if departmentID == "" {
		return nil, handleError(fmt.Errorf("%w: department_id is required", errBadRequest))
	}
	idType, err := req.idType()
	if err != nil {
		return nil, handleError(err)
	}
	force, err := req.bool("force")
	if err != nil {
		return nil, handleError(err)
	}

	h.audit(ctx, "sync_department", "department_id", departmentID, "id_type", idType, "force", force)

	result, err := h.service.SyncDepartment(ctx, departmentID, idType, force)
	if err != nil {
		return nil, handleError(err)
	}
	return h.respond(batchResponse{BatchResult: result, Summary: collector.Summary(result)})
}

// GetUser handles {id, id_type}.
func (h *Sync) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, idType, err := readKey(newRequest(in))
	if err != nil {
		return nil, handleError(err)
	}

	record, err := h.service.GetUser(ctx, id, idType)
	if err != nil {
		return nil, handleError(err)
	}
	return h.respond(record)
}

// CacheStats reports cache counters.
func (h *Sync) CacheStats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return h.respond(h.service.CacheStats())
}

// FlushCache persists dirty cache entries now.
func (h *Sync) FlushCache(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	h.audit(ctx, "flush_cache")

	persisted, failed := h.service.FlushDirty(ctx)
	return h.respond(map[string]int{
		"persisted": persisted,
		"failed":    failed,
	})
}

func (h *Sync) respond(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		h.logger.Error("Sync handler: failed to build response", "error", err)
		return nil, handleError(err)
	}
	return out, nil
}

// audit logs an admin action with the caller subject.
func (h *Sync) audit(ctx context.Context, action string, args ...any) {
	subject, _ := h.contextManager.GetSubjectFromContext(ctx)
	h.logger.Info("Sync handler: admin action", append([]any{"action", action, "subject", subject}, args...)...)
}

func readKey(req request) (string, model.IDType, error) {
	id, err := req.string("id")
	if err != nil {
		return "", "", err
	}
	idType, err := req.idType()
	if err != nil {
		return "", "", err
	}
	return id, idType, nil
}
