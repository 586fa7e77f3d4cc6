// Package staleness decides when a user record is due for a directory fetch.
package staleness

import (
	"sync"
	"time"

	"github.com/dtroode/dirsync/internal/model"
)

// Strategy tracks the time of the last successful sync per user.
// History lives in memory only, so every user is due again after a restart.
type Strategy struct {
	interval time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	lastSyncs map[model.Key]time.Time
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Strategy) {
		s.now = now
	}
}

// New creates a Strategy. A non-positive interval falls back to model.DefaultSyncInterval.
func New(interval time.Duration, opts ...Option) *Strategy {
	if interval <= 0 {
		interval = model.DefaultSyncInterval
	}

	s := &Strategy{
		interval:  interval,
		now:       time.Now,
		lastSyncs: make(map[model.Key]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the staleness interval.
func (s *Strategy) Interval() time.Duration {
	return s.interval
}

// NeedsSync reports whether the user should be fetched: when forced, when it
// was never synced, or when the last sync is older than the interval.
func (s *Strategy) NeedsSync(id string, idType model.IDType, force bool) bool {
	if force {
		return true
	}

	s.mu.RLock()
	last, ok := s.lastSyncs[model.NewKey(id, idType)]
	s.mu.RUnlock()
	if !ok {
		return true
	}

	return s.now().Sub(last) > s.interval
}

// RecordSyncTime stores the current time as the user's last successful sync.
func (s *Strategy) RecordSyncTime(id string, idType model.IDType) {
	now := s.now()

	s.mu.Lock()
	s.lastSyncs[model.NewKey(id, idType)] = now
	s.mu.Unlock()
}

// BatchRecordSyncTime records the current time for every id.
func (s *Strategy) BatchRecordSyncTime(ids []string, idType model.IDType) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.lastSyncs[model.NewKey(id, idType)] = now
	}
}

// FilterUsersToSync splits ids into those due for sync and those to skip,
// preserving input order in both lists.
func (s *Strategy) FilterUsersToSync(ids []string, idType model.IDType, force bool) model.FilterResult {
	result := model.FilterResult{
		ToSync:  make([]string, 0, len(ids)),
		Skipped: make([]string, 0),
	}
	for _, id := range ids {
		if s.NeedsSync(id, idType, force) {
			result.ToSync = append(result.ToSync, id)
		} else {
			result.Skipped = append(result.Skipped, id)
		}
	}
	return result
}

// Forget drops the recorded sync of one user so the next check syncs it.
func (s *Strategy) Forget(id string, idType model.IDType) {
	s.mu.Lock()
	delete(s.lastSyncs, model.NewKey(id, idType))
	s.mu.Unlock()
}

// ClearSyncHistory forgets every recorded sync.
func (s *Strategy) ClearSyncHistory() {
	s.mu.Lock()
	s.lastSyncs = make(map[model.Key]time.Time)
	s.mu.Unlock()
}
