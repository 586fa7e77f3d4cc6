// Package processor attaches derived fields to records fetched from the directory.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

// Enricher adds derived data to a record in place. An error aborts processing
// of that record; enrichers log and skip partial failures themselves.
type Enricher interface {
	Enrich(ctx context.Context, record *model.UserRecord) error
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, record *model.UserRecord) error

// Enrich implements Enricher.
func (f EnricherFunc) Enrich(ctx context.Context, record *model.UserRecord) error {
	return f(ctx, record)
}

// ErrNilRecord is returned when there is nothing to process.
var ErrNilRecord = errors.New("record is nil")

// Processor runs enrichers in order and stamps sync metadata.
type Processor struct {
	enrichers []Enricher
	now       func() time.Time
	logger    *logger.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithEnrichers appends enrichers.
func WithEnrichers(enrichers ...Enricher) Option {
	return func(p *Processor) {
		p.enrichers = append(p.enrichers, enrichers...)
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// New creates a Processor.
func New(logger *logger.Logger, opts ...Option) *Processor {
	p := &Processor{
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns an enriched copy of record. The input is not modified.
func (p *Processor) Process(ctx context.Context, record *model.UserRecord) (*model.UserRecord, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	processed := record.Clone()
	for _, enricher := range p.enrichers {
		if err := enricher.Enrich(ctx, processed); err != nil {
			return nil, fmt.Errorf("failed to enrich record: %w", err)
		}
	}
	processed.MarkSynced(p.now())

	return processed, nil
}
