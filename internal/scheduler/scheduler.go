// Package scheduler runs periodic cache maintenance.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/dirsync/internal/logger"
)

const (
	defaultFlushInterval = 30 * time.Second
	defaultCleanInterval = 5 * time.Minute
	defaultMaxAge        = time.Hour
	finalFlushTimeout    = 10 * time.Second
)

// Maintainer is the cache maintenance surface of the sync service.
type Maintainer interface {
	FlushDirty(ctx context.Context) (persisted, failed int)
	CleanCache(maxAge time.Duration) int
}

// Purger drops expired rows from a persistent tier that does not expire keys
// on its own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Config holds maintenance intervals.
type Config struct {
	FlushInterval time.Duration
	CleanInterval time.Duration
	MaxAge        time.Duration
	// Purger, when set, runs on the clean interval.
	Purger Purger
}

// Scheduler flushes dirty cache entries and evicts idle ones on tickers.
type Scheduler struct {
	maintainer Maintainer
	cfg        Config
	logger     *logger.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// New creates a Scheduler. Zero config values use defaults.
func New(maintainer Maintainer, cfg Config, logger *logger.Logger) *Scheduler {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.CleanInterval <= 0 {
		cfg.CleanInterval = defaultCleanInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}

	return &Scheduler{
		maintainer: maintainer,
		cfg:        cfg,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start runs maintenance until ctx is cancelled or Stop is called. Dirty
// entries are flushed one last time before it returns.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer close(s.done)

	s.logger.Info("Scheduler: starting",
		"flush_interval", s.cfg.FlushInterval,
		"clean_interval", s.cfg.CleanInterval,
		"max_age", s.cfg.MaxAge,
	)

	flushTicker := time.NewTicker(s.cfg.FlushInterval)
	defer flushTicker.Stop()
	cleanTicker := time.NewTicker(s.cfg.CleanInterval)
	defer cleanTicker.Stop()

	for {
		select {
		case <-flushTicker.C:
			s.maintainer.FlushDirty(runCtx)
		case <-cleanTicker.C:
			s.maintainer.CleanCache(s.cfg.MaxAge)
			s.purge(runCtx)
		case <-runCtx.Done():
			s.finalFlush()
			s.logger.Info("Scheduler: stopped")
			return nil
		}
	}
}

// Stop cancels Start and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-s.done
}

func (s *Scheduler) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()

	persisted, failed := s.maintainer.FlushDirty(ctx)
	if failed > 0 {
		s.logger.Warn("Scheduler: dirty entries left unpersisted on shutdown", "persisted", persisted, "failed", failed)
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	if s.cfg.Purger == nil {
		return
	}
	purged, err := s.cfg.Purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("Scheduler: failed to purge expired entries", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("Scheduler: expired entries purged", "count", purged)
	}
}
