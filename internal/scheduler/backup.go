package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/backup"
	"github.com/MrSnakeDoc/cloudesk/internal/index"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

const DefaultBackupInterval = 24 * time.Hour

// BackupRunner is what the scheduler drives; *backup.Service satisfies it.
type BackupRunner interface {
	RunAll(ctx context.Context, retention time.Duration) error
}

// BackupScheduler copies every slot to object storage on an interval and
// prunes old copies.
type BackupScheduler struct {
	runner    BackupRunner
	index     *index.MemoryIndex
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	trigger   chan struct{}
	stopCh    chan struct{}
}

func NewBackupScheduler(
	runner BackupRunner,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
) *BackupScheduler {
	if interval <= 0 {
		interval = DefaultBackupInterval
	}
	if retention <= 0 {
		retention = backup.DefaultRetention
	}

	return &BackupScheduler{
		runner:    runner,
		index:     idx,
		logger:    log.Named("backup-scheduler"),
		interval:  interval,
		retention: retention,
		trigger:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start runs a backup immediately, then on every tick or trigger.
func (s *BackupScheduler) Start(ctx context.Context) error {
	if err := s.Run(ctx); err != nil {
		s.logger.Warn("initial backup failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-s.trigger:
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
			if err := s.Run(ctx); err != nil {
				s.logger.Error("backup failed", logger.Error(err))
			}
		}
	}()

	return nil
}

// Trigger asks for a run as soon as possible. Requests made while one is
// already queued are merged.
func (s *BackupScheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *BackupScheduler) Stop() {
	close(s.stopCh)
}

// Run performs one backup pass and records its outcome.
func (s *BackupScheduler) Run(ctx context.Context) error {
	start := time.Now()
	err := s.runner.RunAll(ctx, s.retention)
	if s.index != nil {
		s.index.RecordBackupRun(err)
	}
	if err == nil {
		s.logger.Info("backup pass completed", logger.Duration("took", time.Since(start)))
	}
	return err
}
