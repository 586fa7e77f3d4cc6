package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dirsync/internal/testutil"
)

type countingMaintainer struct {
	flushes atomic.Int32
	cleans  atomic.Int32
	maxAge  atomic.Int64
}

func (m *countingMaintainer) FlushDirty(context.Context) (int, int) {
	m.flushes.Add(1)
	return 0, 0
}

func (m *countingMaintainer) CleanCache(maxAge time.Duration) int {
	m.cleans.Add(1)
	m.maxAge.Store(int64(maxAge))
	return 0
}

func TestScheduler_RunsMaintenance(t *testing.T) {
	m := &countingMaintainer{}
	s := New(m, Config{
		FlushInterval: 5 * time.Millisecond,
		CleanInterval: 5 * time.Millisecond,
		MaxAge:        time.Minute,
	}, testutil.MakeNoopLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return m.flushes.Load() >= 2 && m.cleans.Load() >= 2
	}, time.Second, time.Millisecond)

	flushesBeforeStop := m.flushes.Load()
	s.Stop()

	require.NoError(t, <-errCh)
	assert.Greater(t, m.flushes.Load(), flushesBeforeStop, "final flush on shutdown")
	assert.Equal(t, int64(time.Minute), m.maxAge.Load())
}

func TestScheduler_StopsWithContext(t *testing.T) {
	m := &countingMaintainer{}
	s := New(m, Config{}, testutil.MakeNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), m.flushes.Load(), "only the final flush ran")
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := New(&countingMaintainer{}, Config{}, testutil.MakeNoopLogger())
	s.Stop()
}

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestScheduler_PurgesOnCleanInterval(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "purge succeeds"},
		{name: "purge fails", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingPurger{err: tt.err}
			s := New(&countingMaintainer{}, Config{
				FlushInterval: time.Hour,
				CleanInterval: 5 * time.Millisecond,
				Purger:        p,
			}, testutil.MakeNoopLogger())

			errCh := make(chan error, 1)
			go func() { errCh <- s.Start(context.Background()) }()

			require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
			s.Stop()
			require.NoError(t, <-errCh)
		})
	}
}
