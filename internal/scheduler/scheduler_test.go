package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/index"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

type countingRunner struct {
	calls     atomic.Int32
	retention time.Duration
	err       error
	mu        sync.Mutex
}

func (r *countingRunner) RunAll(_ context.Context, retention time.Duration) error {
	r.mu.Lock()
	r.retention = retention
	r.mu.Unlock()
	r.calls.Add(1)
	return r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBackupSchedulerRunsImmediatelyAndOnTrigger(t *testing.T) {
	log := logger.New("error", false)
	idx := index.NewMemoryIndex()
	runner := &countingRunner{}

	s := NewBackupScheduler(runner, idx, log, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("calls after Start = %d, want 1", got)
	}
	if runner.retention != 30*24*time.Hour {
		t.Errorf("retention = %v", runner.retention)
	}

	s.Trigger()
	waitFor(t, func() bool { return runner.calls.Load() == 2 })
	waitFor(t, func() bool { return idx.Backup().Runs == 2 })
}

func TestBackupSchedulerRecordsFailure(t *testing.T) {
	idx := index.NewMemoryIndex()
	runner := &countingRunner{err: errors.New("bucket unreachable")}
	s := NewBackupScheduler(runner, idx, logger.Nop(), time.Hour, time.Hour)

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run() hid the runner error")
	}
	if got := idx.Backup().LastError; got != "bucket unreachable" {
		t.Errorf("LastError = %q", got)
	}
}

type fakeSyncer struct {
	calls atomic.Int32
}

func (f *fakeSyncer) SyncAll(context.Context) map[string]syncengine.Status {
	f.calls.Add(1)
	return map[string]syncengine.Status{"desktop": {State: syncengine.StateError, Message: "sync failed: offline"}}
}

func TestSyncTicker(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewSyncTicker(syncer, logger.Nop(), 20*time.Millisecond)
	s.Start(context.Background())

	waitFor(t, func() bool { return syncer.calls.Load() >= 2 })
	s.Stop()

	after := syncer.calls.Load()
	time.Sleep(60 * time.Millisecond)
	if syncer.calls.Load() != after {
		t.Error("ticker kept syncing after Stop()")
	}
}

func TestSyncTickerTrigger(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewSyncTicker(syncer, logger.Nop(), time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	if syncer.calls.Load() != 0 {
		t.Fatal("ticker synced before any tick")
	}
	s.Trigger()
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })
}
