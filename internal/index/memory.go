package index

import (
	"sync"
	"time"
)

// SlotActivity is what the server observed for one slot since it started.
type SlotActivity struct {
	Slot         string    `json:"slot"`
	LastAccepted time.Time `json:"lastAccepted,omitzero"`
	LastRejected time.Time `json:"lastRejected,omitzero"`
	LastReason   string    `json:"lastReason,omitempty"`
	LastClientTS int64     `json:"lastClientTimestamp,omitempty"`
	Accepted     int64     `json:"accepted"`
	Rejected     int64     `json:"rejected"`
}

// BackupActivity tracks the backup scheduler.
type BackupActivity struct {
	LastRun   time.Time `json:"lastRun,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	Runs      int64     `json:"runs"`
}

// MemoryIndex holds process-local activity shared between the handlers,
// the schedulers and the infra endpoint. It is lost on restart; the
// durable counters live in Redis.
type MemoryIndex struct {
	mu     sync.RWMutex
	slots  map[string]*SlotActivity
	backup BackupActivity
	now    func() time.Time
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		slots: make(map[string]*SlotActivity),
		now:   time.Now,
	}
}

func (idx *MemoryIndex) slot(name string) *SlotActivity {
	a, ok := idx.slots[name]
	if !ok {
		a = &SlotActivity{Slot: name}
		idx.slots[name] = a
	}
	return a
}

// RecordAccepted notes an accepted write to slot.
func (idx *MemoryIndex) RecordAccepted(slot string, clientTS int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	a := idx.slot(slot)
	a.Accepted++
	a.LastAccepted = idx.now()
	a.LastClientTS = clientTS
}

// RecordRejected notes a write refused by the guard.
func (idx *MemoryIndex) RecordRejected(slot, reason string, clientTS int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	a := idx.slot(slot)
	a.Rejected++
	a.LastRejected = idx.now()
	a.LastReason = reason
	a.LastClientTS = clientTS
}

// Slot returns a copy of the activity of slot.
func (idx *MemoryIndex) Slot(slot string) (SlotActivity, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	a, ok := idx.slots[slot]
	if !ok {
		return SlotActivity{Slot: slot}, false
	}
	return *a, true
}

// RecordBackupRun notes a scheduler run; err may be nil.
func (idx *MemoryIndex) RecordBackupRun(err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.backup.Runs++
	idx.backup.LastRun = idx.now()
	idx.backup.LastError = ""
	if err != nil {
		idx.backup.LastError = err.Error()
	}
}

func (idx *MemoryIndex) Backup() BackupActivity {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.backup
}
