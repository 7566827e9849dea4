// Package session wires the local cache, the remote client and one sync
// engine per document kind for the lifetime of a client process.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/cloudesk/internal/cache"
	"github.com/MrSnakeDoc/cloudesk/internal/config"
	"github.com/MrSnakeDoc/cloudesk/internal/domain"
	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/remote"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

type (
	DesktopEngine = syncengine.Engine[domain.Desktop, *domain.Desktop]
	FilesEngine   = syncengine.Engine[domain.FileIndex, *domain.FileIndex]
)

type Session struct {
	cache   *cache.Cache
	client  *remote.Client
	desktop *DesktopEngine
	files   *FilesEngine
	grace   time.Duration
	log     logger.Logger

	sources map[string]syncengine.Source

	closeOnce sync.Once
	closeErr  error
}

// Open opens the cache, connects both engines and loads their initial
// snapshots. An unreachable server is not an error: the engines fall back
// to the cache and stay offline for the session.
func Open(ctx context.Context, cfg config.Client, log logger.Logger) (*Session, error) {
	log = log.Named("session")

	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c, err := cache.Open(cfg.CachePath, log)
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(cfg.ServerURL, remote.Options{
		Timeout:       cfg.RequestTimeout,
		BeaconTimeout: cfg.BeaconTimeout,
	}, log)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	s := New(c, client, log, syncengine.Options{
		Debounce:         cfg.Debounce,
		StatusResetDelay: cfg.StatusResetDelay,
	}, cfg.TeardownGrace)
	s.Init(ctx)
	return s, nil
}

// New assembles a session over an open cache and client without loading
// anything.
func New(c *cache.Cache, client *remote.Client, log logger.Logger, opts syncengine.Options, grace time.Duration) *Session {
	return &Session{
		cache:   c,
		client:  client,
		desktop: syncengine.New(guard.Desktop.Slot, domain.NewDesktop, c, client.Slot(guard.Desktop), log, opts),
		files:   syncengine.New(guard.Files.Slot, domain.NewFileIndex, c, client.Slot(guard.Files), log, opts),
		grace:   grace,
		log:     log,
		sources: make(map[string]syncengine.Source, 2),
	}
}

// Init loads both kinds concurrently. Each kind follows its own protocol
// instance; neither blocks the other.
func (s *Session) Init(ctx context.Context) map[string]syncengine.Source {
	var desktop, files syncengine.Source
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { desktop = s.desktop.Init(gctx); return nil })
	g.Go(func() error { files = s.files.Init(gctx); return nil })
	_ = g.Wait()

	s.sources[guard.Desktop.Name] = desktop
	s.sources[guard.Files.Name] = files
	s.log.Info("session ready",
		logger.String("desktop", string(desktop)),
		logger.String("files", string(files)),
		logger.Bool("online", s.desktop.CloudInitialized()))
	return s.sources
}

func (s *Session) Desktop() *DesktopEngine { return s.desktop }
func (s *Session) Files() *FilesEngine     { return s.files }
func (s *Session) Client() *remote.Client  { return s.client }
func (s *Session) Cache() *cache.Cache     { return s.cache }

// Sources returns where each kind took its initial snapshot from.
func (s *Session) Sources() map[string]syncengine.Source { return s.sources }

// SyncAll pushes both kinds concurrently and returns their statuses keyed
// by kind name.
func (s *Session) SyncAll(ctx context.Context) map[string]syncengine.Status {
	var desktop, files syncengine.Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { desktop = s.desktop.SyncToCloud(gctx); return nil })
	g.Go(func() error { files = s.files.SyncToCloud(gctx); return nil })
	_ = g.Wait()

	return map[string]syncengine.Status{
		guard.Desktop.Name: desktop,
		guard.Files.Name:   files,
	}
}

// HasDirtyData reports unsynced changes of any kind, including edits still
// waiting for their debounced save.
func (s *Session) HasDirtyData(ctx context.Context) bool {
	return s.desktop.HasDirtyData(ctx) || s.files.HasDirtyData(ctx)
}

// Teardown hands the snapshots with unsynced changes to fire-and-forget
// delivery. It reports how many were dispatched.
func (s *Session) Teardown() int {
	n := 0
	if s.desktop.SyncBeforeUnload() {
		n++
	}
	if s.files.SyncBeforeUnload() {
		n++
	}
	return n
}

// Close runs Teardown, waits up to the grace period for the deliveries and
// releases the cache. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if n := s.Teardown(); n > 0 && !s.client.Wait(s.grace) {
			s.log.Warn("teardown deliveries still in flight", logger.Duration("grace", s.grace))
		}
		s.desktop.Close()
		s.files.Close()
		s.closeErr = s.cache.Close()
	})
	return s.closeErr
}
