package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

// Syncer pushes every document kind; *session.Session satisfies it.
type Syncer interface {
	SyncAll(ctx context.Context) map[string]syncengine.Status
}

// SyncTicker pushes local changes on an interval, the client side
// counterpart of an autosave timer.
type SyncTicker struct {
	syncer   Syncer
	logger   logger.Logger
	interval time.Duration
	trigger  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
}

func NewSyncTicker(syncer Syncer, log logger.Logger, interval time.Duration) *SyncTicker {
	return &SyncTicker{
		syncer:   syncer,
		logger:   log.Named("sync-ticker"),
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop. Unlike the backup scheduler it does not run
// immediately: Init has just loaded the state.
func (s *SyncTicker) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
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
			for key, st := range s.syncer.SyncAll(ctx) {
				if st.State == syncengine.StateError {
					s.logger.Warn("sync failed", logger.String("kind", key), logger.String("message", st.Message))
				}
			}
		}
	}()
}

func (s *SyncTicker) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for a sync in progress.
func (s *SyncTicker) Stop() {
	close(s.stopCh)
	<-s.done
}
