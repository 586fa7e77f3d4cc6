// Package cache implements the two-tier user record cache: an in-process map
// backed by a persistent key/value store.
//
// The persistent tier is an optimization, not a dependency. Its errors are
// logged and counted but never returned, so an outage degrades the cache to
// memory-only operation for the lifetime of the process.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtroode/dirsync/internal/format"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/metrics"
	"github.com/dtroode/dirsync/internal/model"
)

const (
	// DefaultTTL is the expiry of persisted records.
	DefaultTTL = time.Hour
	// DefaultKeyPrefix namespaces persisted keys.
	DefaultKeyPrefix = "dirsync:user:"
)

// Lookup outcomes reported to metrics.
const (
	lookupMemoryHit = "memory_hit"
	lookupStoreHit  = "store_hit"
	lookupMiss      = "miss"
)

// entry is an in-memory slot. version grows on every write to the slot so a
// persistent write that finishes late cannot clear the dirty flag of a newer value.
type entry struct {
	record  *model.UserRecord
	version uint64
	dirty   bool
	// loaded marks a record read from the persistent tier rather than set.
	loaded bool
}

// tombstone remembers when a key was deleted so that store reads and writes
// started before the delete cannot bring the record back.
type tombstone struct {
	seq uint64
	at  time.Time
	// pending is set until the persistent delete returns.
	pending bool
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
	Dirty  int   `json:"dirty"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the expiry of persisted records.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the prefix of persisted keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is the two-tier user record cache. Records are copied on the way in
// and out, so callers never share memory with the cache.
type Cache struct {
	store  model.KVStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger

	mu         sync.RWMutex
	entries    map[model.Key]*entry
	deleted    map[model.Key]tombstone
	clearedSeq uint64
	seq        uint64
	dirtyCount int

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache on top of store. A nil store makes the cache
// memory-only; entries are then never dirty since there is nothing to persist.
func New(store model.KVStore, logger *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		prefix:  DefaultKeyPrefix,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logger,
		entries: make(map[model.Key]*entry),
		deleted: make(map[model.Key]tombstone),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached record or nil. The memory tier is consulted first.
// On a persistent hit the record is loaded into memory and, when it carries
// metadata.last_access, the access time is refreshed and the entry is marked
// dirty so the refresh reaches the persistent tier on the next flush.
func (c *Cache) Get(ctx context.Context, id string, idType model.IDType) *model.UserRecord {
	key := model.NewKey(id, idType)

	c.mu.RLock()
	e, ok := c.entries[key]
	if ok {
		record := e.record.Clone()
		c.mu.RUnlock()
		c.hits.Add(1)
		metrics.RecordCacheLookup(lookupMemoryHit)
		return record
	}
	readSeq := c.seq
	c.mu.RUnlock()

	if c.store == nil {
		c.miss()
		return nil
	}

	data, found, err := c.store.Get(ctx, key.StorageKey(c.prefix))
	if err != nil {
		c.logStoreError("get", key, err)
		c.miss()
		return nil
	}
	if !found {
		c.miss()
		return nil
	}

	var record model.UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logStoreError("decode", key, err)
		c.miss()
		return nil
	}

	refreshed := record.HasLastAccess()
	if refreshed {
		record.Touch(c.now())
	}

	c.mu.Lock()
	// A concurrent Set wins over what was read from the store.
	if existing, ok := c.entries[key]; ok {
		result := existing.record.Clone()
		c.mu.Unlock()
		c.hits.Add(1)
		metrics.RecordCacheLookup(lookupMemoryHit)
		return result
	}
	// The record was deleted while the store read was in flight.
	if c.deletedAfterLocked(key, readSeq) {
		c.mu.Unlock()
		c.miss()
		return nil
	}
	c.seq++
	e = &entry{record: &record, version: c.seq, loaded: true}
	c.entries[key] = e
	if refreshed {
		c.setDirtyLocked(e, true)
	}
	result := record.Clone()
	c.mu.Unlock()

	c.hits.Add(1)
	metrics.RecordCacheLookup(lookupStoreHit)
	return result
}

// Set stores record in memory and then writes it to the persistent tier. The
// entry stays dirty when the persistent write fails.
func (c *Cache) Set(ctx context.Context, id string, idType model.IDType, record *model.UserRecord) {
	if record == nil {
		return
	}
	key := model.NewKey(id, idType)
	stored := record.Clone()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	c.seq++
	e.record = stored
	e.version = c.seq
	e.loaded = false
	version := e.version
	c.setDirtyLocked(e, c.store != nil)
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	if err := c.persist(ctx, key, stored); err != nil {
		c.logStoreError("set", key, err)
		return
	}
	c.afterPersist(ctx, key, version)
}

// Delete drops the record from both tiers. A failed persistent delete is
// logged and does not bring the memory entry back.
func (c *Cache) Delete(ctx context.Context, id string, idType model.IDType) {
	key := model.NewKey(id, idType)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.setDirtyLocked(e, false)
		delete(c.entries, key)
	}
	c.seq++
	seq := c.seq
	c.deleted[key] = tombstone{seq: seq, at: c.now(), pending: c.store != nil}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key.StorageKey(c.prefix)); err != nil {
		c.logStoreError("delete", key, err)
	}

	c.mu.Lock()
	if t, ok := c.deleted[key]; ok && t.seq == seq {
		t.pending = false
		c.deleted[key] = t
	}
	c.mu.Unlock()
}

// GetDirtyData returns copies of every record not yet persisted.
func (c *Cache) GetDirtyData() map[model.Key]*model.UserRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dirty := make(map[model.Key]*model.UserRecord, c.dirtyCount)
	for key, e := range c.entries {
		if e.dirty {
			dirty[key] = e.record.Clone()
		}
	}
	return dirty
}

// PersistDirtyData writes every dirty entry to the persistent tier. Entries
// that fail stay dirty for the next attempt. It returns the number of
// entries persisted and failed.
func (c *Cache) PersistDirtyData(ctx context.Context) (persisted, failed int) {
	if c.store == nil {
		return 0, 0
	}

	type pending struct {
		key     model.Key
		record  *model.UserRecord
		version uint64
	}

	c.mu.RLock()
	batch := make([]pending, 0, c.dirtyCount)
	for key, e := range c.entries {
		if e.dirty {
			batch = append(batch, pending{key: key, record: e.record.Clone(), version: e.version})
		}
	}
	c.mu.RUnlock()

	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			failed = len(batch) - persisted
			break
		}
		if err := c.persist(ctx, p.key, p.record); err != nil {
			c.logStoreError("flush", p.key, err)
			failed++
			continue
		}
		c.afterPersist(ctx, p.key, p.version)
		persisted++
	}

	if len(batch) > 0 {
		c.logger.Info("Cache: dirty entries flushed", "persisted", persisted, "failed", failed)
	}
	return persisted, failed
}

// CleanMemoryCache evicts clean entries whose last activity is older than
// maxAge. Activity is metadata.last_access, then metadata.last_sync, then 0.
// Dirty entries are never evicted. It returns the number of evicted entries.
// Delete tombstones older than maxAge are dropped as well.
func (c *Cache) CleanMemoryCache(maxAge time.Duration) int {
	nowTime := c.now()
	now := nowTime.Unix()
	limit := int64(maxAge / time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, t := range c.deleted {
		if !t.pending && nowTime.Sub(t.at) > maxAge {
			delete(c.deleted, key)
		}
	}

	evicted := 0
	for key, e := range c.entries {
		if e.dirty {
			continue
		}
		if now-e.record.LastActivity() > limit {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Clear drops every entry from memory and clears the persistent tier.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[model.Key]*entry)
	c.deleted = make(map[model.Key]tombstone)
	c.seq++
	c.clearedSeq = c.seq
	c.dirtyCount = 0
	c.mu.Unlock()
	metrics.SetDirtyEntries(0)

	if c.store == nil {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		metrics.RecordCacheStoreError("clear")
		c.logger.Error("Cache: failed to clear persistent store", "error", err)
	}
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	size, dirty := len(c.entries), c.dirtyCount
	c.mu.RUnlock()

	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
		Dirty:  dirty,
	}
}

func (c *Cache) persist(ctx context.Context, key model.Key, record *model.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := c.store.Set(ctx, key.StorageKey(c.prefix), data, c.ttl); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// afterPersist settles the entry once version reached the store. The entry is
// cleaned when it still holds version. A newer value set in memory is marked
// dirty since the late write may have overwritten it in the store. A record
// deleted while the write was in flight is removed from the store again,
// together with any copy loaded back from the store in the meantime.
func (c *Cache) afterPersist(ctx context.Context, key model.Key, version uint64) {
	undo := false

	c.mu.Lock()
	e, ok := c.entries[key]
	switch {
	case ok && e.version == version:
		c.setDirtyLocked(e, false)
	case c.deletedAfterLocked(key, version):
		if ok && !e.loaded {
			c.setDirtyLocked(e, true)
			break
		}
		if ok {
			c.setDirtyLocked(e, false)
			delete(c.entries, key)
		}
		undo = true
	case ok && e.version > version:
		c.setDirtyLocked(e, true)
	}
	c.mu.Unlock()

	if !undo {
		return
	}
	if err := c.store.Delete(ctx, key.StorageKey(c.prefix)); err != nil {
		c.logStoreError("delete", key, err)
	}
}

// deletedAfterLocked reports whether key was deleted or the cache cleared
// after seq was issued, or a delete of key has not reached the store yet.
func (c *Cache) deletedAfterLocked(key model.Key, seq uint64) bool {
	if c.clearedSeq > seq {
		return true
	}
	t, ok := c.deleted[key]
	return ok && (t.seq > seq || t.pending)
}

func (c *Cache) setDirtyLocked(e *entry, dirty bool) {
	if e.dirty == dirty {
		return
	}
	e.dirty = dirty
	if dirty {
		c.dirtyCount++
	} else {
		c.dirtyCount--
	}
	metrics.SetDirtyEntries(c.dirtyCount)
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.RecordCacheLookup(lookupMiss)
}

func (c *Cache) logStoreError(op string, key model.Key, err error) {
	metrics.RecordCacheStoreError(op)
	c.logger.Warn("Cache: persistent store operation failed",
		"op", op,
		"id", format.MaskID(key.ID, key.Type),
		"id_type", key.Type,
		"error", err,
	)
}
