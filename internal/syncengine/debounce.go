package syncengine

import (
	"sync"
	"time"
)

// Debouncer holds at most one deferred task. Scheduling replaces the pending
// task and restarts the delay, so a burst of calls runs the task once.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	task  func()
	seq   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule sets task as the pending task and (re)starts the delay.
func (d *Debouncer) Schedule(task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.task = task
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.task == nil {
		d.mu.Unlock()
		return
	}
	task := d.take()
	d.mu.Unlock()

	task()
}

// take detaches the pending task. Callers hold mu.
func (d *Debouncer) take() func() {
	task := d.task
	d.task = nil
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return task
}

// Flush runs the pending task now, on the calling goroutine. It reports
// whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.task == nil {
		d.mu.Unlock()
		return false
	}
	task := d.take()
	d.mu.Unlock()

	task()
	return true
}

// Cancel drops the pending task without running it.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.task == nil {
		return false
	}
	d.take()
	return true
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task != nil
}
