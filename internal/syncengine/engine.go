// Package syncengine keeps an in-memory snapshot, the local cache and the
// remote store consistent for one document kind.
//
// Edits land in memory and are written to the cache after a debounce delay
// with the dirty bit set. Nothing is pushed to the remote until SyncToCloud
// or SyncBeforeUnload is called. A rejected push replaces the local state
// with the server's snapshot.
package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/domain"
	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

const (
	DefaultDebounce         = 500 * time.Millisecond
	DefaultStatusResetDelay = 3 * time.Second
)

// Cache is the local durable store. Implementations swallow their own errors.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, dirty bool)
	Get(ctx context.Context, key string) ([]byte, bool)
	IsDirty(ctx context.Context, key string) bool
	MarkClean(ctx context.Context, key string)
	HasDirtyData(ctx context.Context) bool
	Delete(ctx context.Context, key string)
}

// Remote is the cloud slot of one kind.
type Remote interface {
	// Read returns the stored snapshot; found is false when the slot is empty.
	Read(ctx context.Context) (raw []byte, found bool, err error)
	// Write returns a non-nil conflict when the guard rejected the snapshot.
	Write(ctx context.Context, raw []byte) (*guard.Conflict, error)
	Delete(ctx context.Context) error
	// Beacon sends raw without waiting for, or looking at, the outcome.
	Beacon(raw []byte)
}

type Options struct {
	Debounce         time.Duration
	StatusResetDelay time.Duration
	Now              func() time.Time
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.StatusResetDelay <= 0 {
		o.StatusResetDelay = DefaultStatusResetDelay
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Engine syncs one document kind. T is the document struct, P its pointer.
type Engine[T any, P interface {
	*T
	domain.Document
}] struct {
	key    string
	newDoc func() P
	cache  Cache
	remote Remote
	log    logger.Logger
	opts   Options

	mu        sync.Mutex
	doc       P
	gen       uint64 // bumped on every in-memory change
	status    Status
	cloudInit bool
	syncing   bool
	observers map[int]func(Status)
	nextObs   int

	// serializes cache writes of the snapshot with the dirty bit updates
	saveMu sync.Mutex
	// serializes Mutate calls
	mutateMu sync.Mutex

	saver       *Debouncer
	statusReset *Debouncer
}

// New builds an engine for the cache/remote key. newDoc returns the empty
// document used before anything is loaded.
func New[T any, P interface {
	*T
	domain.Document
}](key string, newDoc func() P, c Cache, r Remote, log logger.Logger, opts Options) *Engine[T, P] {
	opts.defaults()
	return &Engine[T, P]{
		key:         key,
		newDoc:      newDoc,
		cache:       c,
		remote:      r,
		log:         log.Named(key),
		opts:        opts,
		doc:         newDoc(),
		status:      Status{State: StateIdle},
		observers:   make(map[int]func(Status)),
		saver:       NewDebouncer(opts.Debounce),
		statusReset: NewDebouncer(opts.StatusResetDelay),
	}
}

func (e *Engine[T, P]) decode(raw []byte) (P, error) {
	var v T
	p := P(&v)
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", e.key, err)
	}
	return p, nil
}

func (e *Engine[T, P]) clone(doc P) (P, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", e.key, err)
	}
	return e.decode(raw)
}

// Init loads the initial snapshot. A populated remote snapshot wins and is
// written to the cache as clean. An empty or absent remote only yields to
// unsynced cached changes; a clean cached copy was confirmed by a server
// that no longer holds it, so it is dropped. An unreachable remote falls
// back to whatever the cache holds but leaves the engine not
// cloud-initialized, so nothing is pushed this session.
func (e *Engine[T, P]) Init(ctx context.Context) Source {
	raw, found, err := e.remote.Read(ctx)
	if err != nil {
		e.log.Warn("remote unreachable, using local cache", logger.Error(err))
		return e.loadLocal(ctx, nil)
	}

	var remoteDoc P
	if found {
		if remoteDoc, err = e.decode(raw); err != nil {
			e.log.Error("remote snapshot unreadable, using local cache", logger.Error(err))
			return e.loadLocal(ctx, nil)
		}
	}

	e.mu.Lock()
	e.cloudInit = true
	e.mu.Unlock()

	if remoteDoc != nil && !remoteDoc.IsEmpty() {
		e.saveMu.Lock()
		e.replace(remoteDoc)
		e.cache.Set(ctx, e.key, raw, false)
		e.saveMu.Unlock()
		e.log.Info("loaded snapshot from remote", logger.Int64("updated_at", remoteDoc.Timestamp()))
		return SourceRemote
	}

	return e.loadPending(ctx, remoteDoc)
}

// loadPending adopts the cached snapshot only when it holds unsynced
// changes, else fallback, else an empty doc.
func (e *Engine[T, P]) loadPending(ctx context.Context, fallback P) Source {
	if e.cache.IsDirty(ctx, e.key) {
		return e.loadLocal(ctx, fallback)
	}
	if _, ok := e.cache.Get(ctx, e.key); ok {
		e.log.Info("remote snapshot gone, dropping synced local copy")
		e.cache.Delete(ctx, e.key)
	}
	if fallback != nil {
		e.replace(fallback)
		return SourceRemote
	}
	e.replace(e.newDoc())
	return SourceEmpty
}

// loadLocal adopts the cached snapshot, else fallback, else an empty doc.
func (e *Engine[T, P]) loadLocal(ctx context.Context, fallback P) Source {
	if raw, ok := e.cache.Get(ctx, e.key); ok {
		doc, err := e.decode(raw)
		if err == nil {
			e.replace(doc)
			e.log.Info("loaded snapshot from local cache", logger.Int64("updated_at", doc.Timestamp()))
			return SourceCache
		}
		e.log.Error("cached snapshot unreadable, ignoring it", logger.Error(err))
	}

	if fallback != nil {
		e.replace(fallback)
		return SourceRemote
	}
	e.replace(e.newDoc())
	return SourceEmpty
}

func (e *Engine[T, P]) replace(doc P) {
	e.mu.Lock()
	e.doc = doc
	e.gen++
	e.mu.Unlock()
}

// Snapshot returns a deep copy of the current document.
func (e *Engine[T, P]) Snapshot() P {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.clone(e.doc)
	if err != nil {
		e.log.Error("snapshot copy failed", logger.Error(err))
		return e.newDoc()
	}
	return doc
}

// Mutate applies fn to a copy of the document. When fn succeeds the copy
// becomes current, its updatedAt is bumped and a cache write is scheduled.
// When fn fails the document is left untouched and fn's error is returned.
//
// fn runs without the state lock, so it may read the engine through
// Snapshot or Status, but it must not call Mutate. When the document is
// replaced while fn runs (a conflict adopted the server copy), fn is
// applied again to the new document.
func (e *Engine[T, P]) Mutate(fn func(doc P) error) error {
	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	for {
		e.mu.Lock()
		work, err := e.clone(e.doc)
		gen := e.gen
		e.mu.Unlock()
		if err != nil {
			return err
		}
		if err := fn(work); err != nil {
			return err
		}

		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			continue
		}
		// keep updatedAt strictly increasing even when the adopted snapshot
		// came from a clock ahead of ours
		now := e.opts.Now().UnixMilli()
		if prev := e.doc.Timestamp(); now <= prev {
			now = prev + 1
		}
		work.Stamp(now)
		e.doc = work
		e.gen++
		e.mu.Unlock()

		e.Save()
		return nil
	}
}

// Save schedules a debounced write of the current document to the cache,
// marked dirty. It never talks to the remote.
func (e *Engine[T, P]) Save() {
	e.saver.Schedule(e.persist)
}

// Flush performs a pending save immediately and waits for any save in
// progress.
func (e *Engine[T, P]) Flush() {
	e.saver.Flush()
	// a save fired by the timer may still be writing
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
}

func (e *Engine[T, P]) persist() {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	raw, err := json.Marshal(e.doc)
	e.mu.Unlock()
	if err != nil {
		e.log.Error("snapshot encode failed, cache not updated", logger.Error(err))
		return
	}
	e.cache.Set(context.Background(), e.key, raw, true)
}

// SyncToCloud pushes the snapshot when the engine is cloud-initialized and
// the cache holds unsynced changes. It is a no-op while a push is in flight
// or when there is nothing to push. Remote failures are reported through the
// returned status, never as errors.
func (e *Engine[T, P]) SyncToCloud(ctx context.Context) Status {
	e.mu.Lock()
	if e.syncing || !e.cloudInit {
		st := e.status
		e.mu.Unlock()
		return st
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	e.Flush()
	if !e.cache.IsDirty(ctx, e.key) {
		return e.Status()
	}

	e.mu.Lock()
	raw, err := json.Marshal(e.doc)
	gen := e.gen
	e.mu.Unlock()
	if err != nil {
		e.log.Error("snapshot encode failed", logger.Error(err))
		return e.finish(Status{State: StateError, Message: err.Error()})
	}

	e.setStatus(Status{State: StateSyncing, LastSyncAt: e.Status().LastSyncAt})

	conflict, err := e.remote.Write(ctx, raw)
	switch {
	case err != nil:
		e.log.Warn("push failed, keeping local changes", logger.Error(err))
		return e.finish(Status{State: StateError, Message: fmt.Sprintf("sync failed: %v", err)})

	case conflict != nil:
		return e.finish(e.adopt(ctx, conflict))

	default:
		e.saveMu.Lock()
		e.mu.Lock()
		unchanged := e.gen == gen
		e.mu.Unlock()
		if unchanged {
			e.cache.MarkClean(ctx, e.key)
		}
		e.saveMu.Unlock()

		e.log.Info("snapshot pushed", logger.Int("bytes", len(raw)), logger.Bool("clean", unchanged))
		return e.finish(Status{State: StateSuccess, LastSyncAt: e.opts.Now()})
	}
}

// adopt replaces local state with the server snapshot carried by conflict.
func (e *Engine[T, P]) adopt(ctx context.Context, c *guard.Conflict) Status {
	doc, err := e.decode(c.ServerData)
	if err != nil {
		e.log.Error("conflict without usable server snapshot", logger.String("reason", c.Reason), logger.Error(err))
		return Status{State: StateError, Message: MsgUnreadableServer}
	}

	e.saver.Cancel()
	e.saveMu.Lock()
	e.replace(doc)
	e.cache.Set(ctx, e.key, c.ServerData, false)
	e.saveMu.Unlock()

	e.log.Warn("push rejected, adopted server snapshot",
		logger.String("reason", c.Reason),
		logger.Int64("client_ts", c.ClientTimestamp),
		logger.Int64("server_ts", c.ServerTimestamp))

	msg := MsgConflictResolved
	if c.Reason == guard.ReasonEmptyData {
		msg = MsgEmptyRejected
	}
	return Status{State: StateError, Message: msg}
}

// finish publishes a terminal status and schedules the return to idle.
func (e *Engine[T, P]) finish(st Status) Status {
	if st.LastSyncAt.IsZero() {
		st.LastSyncAt = e.Status().LastSyncAt
	}
	e.setStatus(st)
	e.statusReset.Schedule(func() {
		e.mu.Lock()
		if e.status.State != StateSuccess && e.status.State != StateError {
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
		e.setStatus(Status{State: StateIdle, LastSyncAt: st.LastSyncAt})
	})
	return st
}

// SyncBeforeUnload flushes pending saves and hands the current snapshot to
// the remote's fire-and-forget delivery. It does nothing unless the engine
// is cloud-initialized and the cache holds unsynced changes, so a session
// that only read never writes. It reports whether a delivery was dispatched.
func (e *Engine[T, P]) SyncBeforeUnload() bool {
	e.Flush()

	if !e.CloudInitialized() || !e.cache.IsDirty(context.Background(), e.key) {
		return false
	}

	e.mu.Lock()
	raw, err := json.Marshal(e.doc)
	e.mu.Unlock()
	if err != nil {
		e.log.Error("snapshot encode failed, teardown push skipped", logger.Error(err))
		return false
	}

	e.remote.Beacon(raw)
	return true
}

// Reset deletes the remote snapshot and the cached copy, and starts over
// from an empty document. The local state is kept when the remote delete
// fails.
func (e *Engine[T, P]) Reset(ctx context.Context) Status {
	if err := e.remote.Delete(ctx); err != nil {
		e.log.Warn("remote delete failed", logger.Error(err))
		return e.finish(Status{State: StateError, Message: fmt.Sprintf("reset failed: %v", err)})
	}

	e.saver.Cancel()
	e.saveMu.Lock()
	e.replace(e.newDoc())
	e.cache.Delete(ctx, e.key)
	e.saveMu.Unlock()

	e.mu.Lock()
	e.cloudInit = true
	e.mu.Unlock()

	e.log.Info("workspace reset")
	return e.finish(Status{State: StateSuccess, Message: "workspace reset"})
}

func (e *Engine[T, P]) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine[T, P]) CloudInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloudInit
}

// IsDirty reports unsynced changes of this engine's document.
func (e *Engine[T, P]) IsDirty(ctx context.Context) bool {
	return e.cache.IsDirty(ctx, e.key)
}

// HasDirtyData reports unsynced changes of any document in the cache, or an
// edit of this engine still waiting for its debounced save.
func (e *Engine[T, P]) HasDirtyData(ctx context.Context) bool {
	return e.saver.Pending() || e.cache.HasDirtyData(ctx)
}

// OnStatus registers fn for every status change and returns a function
// removing it. fn is called without engine locks held.
func (e *Engine[T, P]) OnStatus(fn func(Status)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

func (e *Engine[T, P]) setStatus(st Status) {
	e.mu.Lock()
	e.status = st
	obs := make([]func(Status), 0, len(e.observers))
	for _, fn := range e.observers {
		obs = append(obs, fn)
	}
	e.mu.Unlock()

	for _, fn := range obs {
		fn(st)
	}
}

// Key returns the cache and slot key of the engine.
func (e *Engine[T, P]) Key() string { return e.key }

// Close writes any pending save and stops the timers.
func (e *Engine[T, P]) Close() {
	e.Flush()
	e.statusReset.Cancel()
}
