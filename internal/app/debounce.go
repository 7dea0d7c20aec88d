package app

import (
	"sync"
	"time"

	"github.com/example/puzzbot/internal/clock"
)

// Debouncer runs at most one pending callback per key. Scheduling a key that
// is already pending replaces its timer; cancelling guarantees the old
// callback will not run.
type Debouncer struct {
	clock clock.Clock

	mu      sync.Mutex
	pending map[string]*debounceEntry
	running sync.WaitGroup
}

type debounceEntry struct {
	timer *clock.Timer
}

// NewDebouncer creates a Debouncer driven by c.
func NewDebouncer(c clock.Clock) *Debouncer {
	return &Debouncer{clock: c, pending: make(map[string]*debounceEntry)}
}

// Schedule arranges for fn to run once delay has passed without another
// Schedule or Cancel for key. A non-positive delay runs fn before returning.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	d.cancelLocked(key)
	if delay <= 0 {
		d.running.Add(1)
		d.mu.Unlock()
		defer d.running.Done()
		fn()
		return
	}

	entry := &debounceEntry{}
	d.pending[key] = entry
	d.running.Add(1)
	entry.timer = d.clock.AfterFunc(delay, func() {
		defer d.running.Done()
		d.mu.Lock()
		// A Stop that lost the race with the timer leaves a stale callback
		// behind; only the entry still registered for key may fire.
		if d.pending[key] != entry {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
	d.mu.Unlock()
}

// Cancel drops the pending callback for key. It reports whether one was
// pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked(key)
}

func (d *Debouncer) cancelLocked(key string) bool {
	entry, ok := d.pending[key]
	if !ok {
		return false
	}
	delete(d.pending, key)
	if entry.timer.Stop() {
		// The callback will never run, so release its slot here.
		d.running.Done()
	}
	return true
}

// Pending reports whether key has a callback waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending callback and waits for running ones to finish.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	for key := range d.pending {
		d.cancelLocked(key)
	}
	d.mu.Unlock()
	d.running.Wait()
}
