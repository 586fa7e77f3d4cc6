package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/dirsync/internal/cache"
	"github.com/dtroode/dirsync/internal/changes"
	"github.com/dtroode/dirsync/internal/collector"
	"github.com/dtroode/dirsync/internal/errhandler"
	"github.com/dtroode/dirsync/internal/events"
	"github.com/dtroode/dirsync/internal/format"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/metrics"
	"github.com/dtroode/dirsync/internal/model"
	"github.com/dtroode/dirsync/internal/processor"
	"github.com/dtroode/dirsync/internal/staleness"
)

const (
	defaultWorkers = 4
	// maxDepartmentPages bounds a department listing in case the directory
	// keeps returning has_more.
	maxDepartmentPages = 1000
)

// SyncConfig tunes batch behaviour.
type SyncConfig struct {
	ChunkSize int
	Workers   int
}

// Sync keeps the user cache in line with the directory.
type Sync struct {
	source     model.UserSource
	cache      *cache.Cache
	strategy   *staleness.Strategy
	detector   *changes.Detector
	processor  *processor.Processor
	dispatcher *events.Dispatcher
	errHandler *errhandler.Handler
	chunkSize  int
	workers    int
	logger     *logger.Logger
}

// NewSync creates a Sync service.
func NewSync(
	source model.UserSource,
	cache *cache.Cache,
	strategy *staleness.Strategy,
	processor *processor.Processor,
	dispatcher *events.Dispatcher,
	cfg SyncConfig,
	logger *logger.Logger,
) *Sync {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = model.DefaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	return &Sync{
		source:     source,
		cache:      cache,
		strategy:   strategy,
		detector:   changes.NewDetector(),
		processor:  processor,
		dispatcher: dispatcher,
		errHandler: errhandler.New(logger),
		chunkSize:  cfg.ChunkSize,
		workers:    cfg.Workers,
		logger:     logger,
	}
}

// SyncUser returns a fresh record of one user. A user synced within the
// staleness interval is served from the cache unless force is set; a cache
// miss always triggers a fetch. Validation errors are returned before any
// I/O, fetch and processing errors as *model.SyncError.
func (s *Sync) SyncUser(ctx context.Context, id string, idType model.IDType, force bool) (*model.UserRecord, error) {
	key := model.NewKey(id, idType)
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if !s.strategy.NeedsSync(id, idType, force) {
		if cached := s.cache.Get(ctx, id, idType); cached != nil {
			metrics.RecordSync(metrics.PathSingle, metrics.ResultCached, 1)
			return cached, nil
		}
		s.logger.Debug("Sync service: cache miss overrides skip", "id", format.MaskID(id, idType), "id_type", idType)
	}

	record, err := s.source.FetchOne(ctx, id, idType)
	if err != nil {
		metrics.RecordSync(metrics.PathSingle, metrics.ResultFailed, 1)
		if errors.Is(err, model.ErrUserNotFoundUpstream) {
			s.handleDeletion(ctx, key)
		}
		return nil, s.errHandler.HandleSyncError("fetch user", key, err)
	}

	processed, err := s.processRecord(ctx, key, record)
	if err != nil {
		metrics.RecordSync(metrics.PathSingle, metrics.ResultFailed, 1)
		return nil, s.errHandler.HandleSyncError("process user", key, err)
	}
	s.strategy.RecordSyncTime(id, idType)

	metrics.RecordSync(metrics.PathSingle, metrics.ResultSuccess, 1)
	return processed, nil
}

// BatchSyncUsers syncs many users of one identifier type. Every distinct id
// ends in exactly one category of the result. Only invalid input is returned
// as an error; per-user problems are reported in the result.
func (s *Sync) BatchSyncUsers(ctx context.Context, ids []string, idType model.IDType, force bool) (*model.BatchResult, error) {
	if err := idType.Validate(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := model.NewKey(id, idType).Validate(); err != nil {
			return nil, err
		}
	}

	result := collector.NewBatchResult()
	if len(ids) == 0 {
		return result, nil
	}

	start := time.Now()
	unique := collector.Dedupe(ids)
	for _, chunk := range collector.Chunk(unique, s.chunkSize) {
		collector.Merge(result, s.syncChunk(ctx, chunk, idType, force))
	}

	summary := collector.Summary(result)
	metrics.RecordSync(metrics.PathBatch, metrics.ResultSuccess, summary.Succeeded)
	metrics.RecordSync(metrics.PathBatch, metrics.ResultFailed, summary.Failed)
	metrics.RecordSync(metrics.PathBatch, metrics.ResultSkipped, summary.Skipped)
	metrics.RecordBatch(len(unique), time.Since(start).Seconds())

	s.logger.Info("Sync service: batch sync finished",
		"id_type", idType,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	s.dispatcher.BatchSyncCompleted(ctx, unique, idType, result)
	return result, nil
}

// syncChunk performs one directory call for the stale ids of chunk and
// processes the returned records concurrently.
func (s *Sync) syncChunk(ctx context.Context, chunk []string, idType model.IDType, force bool) *model.BatchResult {
	result := collector.NewBatchResult()

	filter := s.strategy.FilterUsersToSync(chunk, idType, force)
	for _, id := range filter.Skipped {
		collector.AddSkipped(result, id)
	}
	if len(filter.ToSync) == 0 {
		return result
	}

	records, err := s.source.FetchMany(ctx, filter.ToSync, idType)
	if err != nil {
		for _, id := range s.errHandler.HandleBatchError(filter.ToSync, idType, err) {
			collector.AddFailed(result, id, err.Error())
		}
		return result
	}

	requested := make(map[string]struct{}, len(filter.ToSync))
	for _, id := range filter.ToSync {
		requested[id] = struct{}{}
	}

	var (
		mu        sync.Mutex
		succeeded = make([]string, 0, len(records))
		g         errgroup.Group
	)
	g.SetLimit(s.workers)

	for id, record := range records {
		if _, ok := requested[id]; !ok {
			s.logger.Warn("Sync service: directory returned an unrequested user", "id", format.MaskID(id, idType), "id_type", idType)
			continue
		}

		g.Go(func() error {
			key := model.NewKey(id, idType)
			processed, err := s.processRecord(ctx, key, record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.errHandler.HandleRecordError(key, err)
				collector.AddFailed(result, id, err.Error())
				return nil
			}
			collector.AddSuccess(result, id, processed)
			succeeded = append(succeeded, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range errhandler.FindMissing(filter.ToSync, records) {
		s.handleDeletion(ctx, model.NewKey(id, idType))
		collector.AddFailed(result, id, model.ErrUserNotFoundUpstream.Error())
	}

	s.strategy.BatchRecordSyncTime(succeeded, idType)
	return result
}

// processRecord enriches a fetched record, stores it and emits an update
// event when it differs from the previously cached value.
func (s *Sync) processRecord(ctx context.Context, key model.Key, record *model.UserRecord) (*model.UserRecord, error) {
	if record == nil {
		return nil, errors.New("directory returned an empty record")
	}

	previous := s.cache.Get(ctx, key.ID, key.Type)

	processed, err := s.processor.Process(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to process record: %w", err)
	}

	s.cache.Set(ctx, key.ID, key.Type, processed)

	if s.detector.ShouldDispatchUpdateEvent(previous, processed) {
		s.dispatcher.UserUpdated(ctx, key, previous, processed, s.detector.HasChanges(previous, processed))
	}

	return processed, nil
}

// SyncDepartment syncs every member of a department.
func (s *Sync) SyncDepartment(ctx context.Context, departmentID string, idType model.IDType, force bool) (*model.BatchResult, error) {
	if departmentID == "" {
		return nil, fmt.Errorf("department id: %w", model.ErrEmptyID)
	}
	if err := idType.Validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	pageToken := ""
	for page := 0; page < maxDepartmentPages; page++ {
		members, err := s.source.FetchDepartmentMembers(ctx, departmentID, idType, pageToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list department members: %w", err)
		}

		for _, member := range members.Items {
			if id := member.IdentifierFor(idType); id != "" {
				ids = append(ids, id)
			}
		}

		if !members.HasMore || members.NextPageToken == "" || members.NextPageToken == pageToken {
			break
		}
		pageToken = members.NextPageToken
	}

	s.logger.Info("Sync service: department members listed", "department_id", departmentID, "count", len(ids))

	return s.BatchSyncUsers(ctx, ids, idType, force)
}

// GetUser serves a user from the cache and syncs it on a miss.
func (s *Sync) GetUser(ctx context.Context, id string, idType model.IDType) (*model.UserRecord, error) {
	key := model.NewKey(id, idType)
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if cached := s.cache.Get(ctx, id, idType); cached != nil {
		return cached, nil
	}
	return s.SyncUser(ctx, id, idType, true)
}

// HandleUserDeleted drops a user that the directory reported as deleted.
func (s *Sync) HandleUserDeleted(ctx context.Context, id string, idType model.IDType) error {
	key := model.NewKey(id, idType)
	if err := key.Validate(); err != nil {
		return err
	}

	s.handleDeletion(ctx, key)
	return nil
}

func (s *Sync) handleDeletion(ctx context.Context, key model.Key) {
	s.logger.Info("Sync service: user no longer exists upstream", "id", format.MaskID(key.ID, key.Type), "id_type", key.Type)
	s.cache.Delete(ctx, key.ID, key.Type)
	s.strategy.Forget(key.ID, key.Type)
	s.dispatcher.UserDeleted(ctx, key)
}

// FlushDirty writes unpersisted cache entries to the persistent tier.
func (s *Sync) FlushDirty(ctx context.Context) (persisted, failed int) {
	return s.cache.PersistDirtyData(ctx)
}

// CleanCache evicts clean cache entries inactive for longer than maxAge.
func (s *Sync) CleanCache(maxAge time.Duration) int {
	evicted := s.cache.CleanMemoryCache(maxAge)
	if evicted > 0 {
		s.logger.Info("Sync service: memory cache cleaned", "evicted", evicted)
	}
	return evicted
}

// CacheStats returns cache statistics.
func (s *Sync) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ResetCache drops every cached record and the staleness history.
func (s *Sync) ResetCache(ctx context.Context) {
	s.cache.Clear(ctx)
	s.strategy.ClearSyncHistory()
}
