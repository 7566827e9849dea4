package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/cloudesk/internal/cache"
	"github.com/MrSnakeDoc/cloudesk/internal/config"
	"github.com/MrSnakeDoc/cloudesk/internal/domain"
	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/index"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/remote"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

func newServer(t *testing.T) (*httptest.Server, *redisstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.Nop()
	store := redisstore.NewStore(client, "test", log)
	srv := httptest.NewServer(httpserver.Router(deps.Deps{
		Logger:           log,
		StartTime:        time.Now(),
		Store:            store,
		MemoryIndex:      index.NewMemoryIndex(),
		MaxSnapshotBytes: 1 << 20,
		WriteRateBurst:   1000,
		WriteRatePerMin:  6000,
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

// fixedClock returns a clock frozen at ms, movable through the pointer.
func fixedClock(ms int64) (*atomic.Int64, func() time.Time) {
	var v atomic.Int64
	v.Store(ms)
	return &v, func() time.Time { return time.UnixMilli(v.Load()) }
}

func newSession(t *testing.T, serverURL string, now func() time.Time) *Session {
	t.Helper()
	return openSession(t, serverURL, filepath.Join(t.TempDir(), "cache.db"), now)
}

// openSession opens a session over the cache file at path, so a test can
// restart a device and keep its cache.
func openSession(t *testing.T, serverURL, path string, now func() time.Time) *Session {
	t.Helper()
	c, err := cache.Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	client, err := remote.NewClient(serverURL, remote.Options{Timeout: 2 * time.Second, BeaconTimeout: time.Second}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	s := New(c, client, logger.Nop(), syncengine.Options{
		Debounce:         10 * time.Millisecond,
		StatusResetDelay: time.Hour,
		Now:              now,
	}, time.Second)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addNote(t *testing.T, s *Session, title string) string {
	t.Helper()
	var id string
	err := s.Desktop().Mutate(func(d *domain.Desktop) error {
		w, err := d.CreateWidget(domain.CreateParams{Type: domain.KindNote, Title: title}, 0)
		id = w.ID
		return err
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	return id
}

func TestFreshClientPicksUpRemote(t *testing.T) {
	srv, _ := newServer(t)

	_, clockA := fixedClock(100)
	a := newSession(t, srv.URL, clockA)
	if src := a.Init(context.Background()); src["desktop"] != syncengine.SourceEmpty {
		t.Fatalf("first Init = %v", src)
	}
	addNote(t, a, "w1")
	st := a.SyncAll(context.Background())
	if st["desktop"].State != syncengine.StateSuccess {
		t.Fatalf("push = %+v", st["desktop"])
	}
	// nothing changed for files, nothing is pushed
	if st["file-metadata"].State != syncengine.StateIdle {
		t.Errorf("files status = %+v", st["file-metadata"])
	}
	if a.HasDirtyData(context.Background()) {
		t.Error("dirty after a successful push")
	}

	b := newSession(t, srv.URL, time.Now)
	if src := b.Init(context.Background()); src["desktop"] != syncengine.SourceRemote {
		t.Fatalf("second client Init = %v", src)
	}
	doc := b.Desktop().Snapshot()
	if len(doc.Widgets) != 1 || doc.Widgets[0].Title != "w1" || doc.UpdatedAt != 100 {
		t.Errorf("second client snapshot = %+v", doc.Widgets)
	}
}

func TestStaleAndEmptyPushesAdoptServer(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()

	// B starts while the server is still empty
	clockB, nowB := fixedClock(50)
	b := newSession(t, srv.URL, nowB)
	b.Init(ctx)

	_, nowA := fixedClock(100)
	a := newSession(t, srv.URL, nowA)
	a.Init(ctx)
	addNote(t, a, "w1")
	a.SyncAll(ctx)

	// B edits with an older clock: stale
	clockB.Store(90)
	addNote(t, b, "late")
	st := b.SyncAll(ctx)["desktop"]
	if st.State != syncengine.StateError || st.Message != syncengine.MsgConflictResolved {
		t.Fatalf("stale push status = %+v", st)
	}
	doc := b.Desktop().Snapshot()
	if len(doc.Widgets) != 1 || doc.Widgets[0].Title != "w1" {
		t.Fatalf("B did not adopt the server snapshot: %+v", doc.Widgets)
	}
	if b.HasDirtyData(ctx) {
		t.Error("adopted snapshot left dirty")
	}

	// B empties its desktop with a newer clock: refused anyway
	clockB.Store(200)
	if err := b.Desktop().Mutate(func(d *domain.Desktop) error {
		return d.DeleteWidget(d.Widgets[0].ID)
	}); err != nil {
		t.Fatal(err)
	}
	st = b.SyncAll(ctx)["desktop"]
	if st.State != syncengine.StateError || st.Message != syncengine.MsgEmptyRejected {
		t.Fatalf("empty push status = %+v", st)
	}
	if doc := b.Desktop().Snapshot(); len(doc.Widgets) != 1 {
		t.Errorf("server data not restored: %+v", doc.Widgets)
	}

	raw, err := store.Get(ctx, guard.Desktop)
	if err != nil {
		t.Fatal(err)
	}
	env, _ := guard.Inspect(guard.Desktop, raw)
	if env.UpdatedAt != 100 || !env.Populated {
		t.Errorf("server snapshot changed: %+v", env)
	}
}

func TestOfflineSessionNeverPushes(t *testing.T) {
	srv, store := newServer(t)
	url := srv.URL
	srv.Close()

	s := newSession(t, url, time.Now)
	src := s.Init(context.Background())
	if src["desktop"] != syncengine.SourceEmpty || s.Desktop().CloudInitialized() {
		t.Fatalf("offline Init = %v, cloud %v", src, s.Desktop().CloudInitialized())
	}

	addNote(t, s, "offline")
	s.SyncAll(context.Background())
	// Teardown flushes the pending save even when it cannot deliver
	if s.Teardown() != 0 {
		t.Error("offline teardown dispatched deliveries")
	}
	if !s.HasDirtyData(context.Background()) {
		t.Error("offline changes lost their dirty mark")
	}
	if _, err := store.Get(context.Background(), guard.Desktop); err == nil {
		t.Error("offline session reached the store")
	}
}

func TestCloseDeliversPendingChanges(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()

	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	client, err := remote.NewClient(srv.URL, remote.Options{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	s := New(c, client, logger.Nop(), syncengine.Options{Debounce: time.Hour}, 2*time.Second)
	s.Init(ctx)
	addNote(t, s, "unsaved")

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := store.Get(ctx, guard.Desktop)
	if err != nil {
		t.Fatalf("teardown delivery missing: %v", err)
	}
	if env, _ := guard.Inspect(guard.Desktop, raw); !env.Populated {
		t.Errorf("delivered snapshot = %s", raw)
	}
	// the files kind was never edited
	if _, err := store.Get(ctx, guard.Files); !errors.Is(err, redisstore.ErrNotFound) {
		t.Errorf("untouched kind delivered at teardown: %v", err)
	}
}

func TestReadOnlySessionSendsNothing(t *testing.T) {
	srv, _ := newServer(t)
	s := newSession(t, srv.URL, time.Now)
	s.Init(context.Background())

	if n := s.Teardown(); n != 0 {
		t.Errorf("Teardown() = %d deliveries for a session without edits", n)
	}
}

func TestResetLeavesSlotsAbsent(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s := openSession(t, srv.URL, path, time.Now)
	s.Init(ctx)
	addNote(t, s, "w1")
	s.SyncAll(ctx)

	if st := s.Desktop().Reset(ctx); st.State != syncengine.StateSuccess {
		t.Fatalf("Reset() = %+v", st)
	}
	s.Files().Reset(ctx)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	for _, k := range guard.Kinds {
		if _, err := store.Get(ctx, k); !errors.Is(err, redisstore.ErrNotFound) {
			t.Errorf("%s slot after reset and close: err = %v, want not found", k.Name, err)
		}
	}
}

func TestStaleDeviceDoesNotRestoreDeletedWorkspace(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()
	pathB := filepath.Join(t.TempDir(), "b.db")

	a := newSession(t, srv.URL, time.Now)
	a.Init(ctx)
	addNote(t, a, "secret")
	a.SyncAll(ctx)

	// B reads the workspace and caches it clean
	b := openSession(t, srv.URL, pathB, time.Now)
	if src := b.Init(ctx); src["desktop"] != syncengine.SourceRemote {
		t.Fatalf("B Init = %v", src)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	a.Desktop().Reset(ctx)

	// B comes back with its stale cache and only reads
	b = openSession(t, srv.URL, pathB, time.Now)
	if src := b.Init(ctx); src["desktop"] != syncengine.SourceEmpty {
		t.Errorf("B Init after delete = %v, want empty", src)
	}
	if !b.Desktop().Snapshot().IsEmpty() {
		t.Error("B kept the deleted workspace")
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, guard.Desktop); !errors.Is(err, redisstore.ErrNotFound) {
		t.Errorf("deleted slot came back: err = %v", err)
	}
}

func TestDirtyCacheSurvivesDeletedRemote(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	// edits made offline are cached dirty
	offline := openSession(t, "http://127.0.0.1:1", path, time.Now)
	offline.Init(ctx)
	addNote(t, offline, "offline")
	if err := offline.Close(); err != nil {
		t.Fatal(err)
	}

	s := openSession(t, srv.URL, path, time.Now)
	if src := s.Init(ctx); src["desktop"] != syncengine.SourceCache {
		t.Fatalf("Init = %v, want cache", src)
	}
	if st := s.SyncAll(ctx)["desktop"]; st.State != syncengine.StateSuccess {
		t.Errorf("push of offline edits = %+v", st)
	}
}

func TestOpen(t *testing.T) {
	srv, _ := newServer(t)
	cfg := config.DefaultClient()
	cfg.ServerURL = srv.URL
	cfg.CachePath = filepath.Join(t.TempDir(), "nested", "cache.db")

	s, err := Open(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	if s.Sources()["desktop"] != syncengine.SourceEmpty || !s.Files().CloudInitialized() {
		t.Errorf("Open() sources = %v", s.Sources())
	}

	cfg.ServerURL = "not a url"
	if _, err := Open(context.Background(), cfg, logger.Nop()); err == nil {
		t.Error("Open() accepted a bad server url")
	}
}
