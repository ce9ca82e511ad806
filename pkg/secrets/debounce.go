package secrets

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of file events into a single callback that runs
// once the events have been quiet for the configured interval. An editor save
// or an atomic rename usually produces several events within a few
// milliseconds; only the last callback survives.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool

	// run serializes callbacks; a slow one delays the next rather than
	// overlapping it.
	run sync.Mutex

	// inflight counts a scheduled or running callback so Stop can wait.
	inflight sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback to run after the quiet interval, replacing any
// callback that has not fired yet. Calls after Stop are ignored.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.callback = callback

	if d.timer != nil && d.timer.Stop() {
		// The pending callback will never run.
		d.inflight.Done()
	}

	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	defer d.inflight.Done()

	d.mu.Lock()
	cb := d.callback
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || cb == nil {
		return
	}

	d.run.Lock()
	defer d.run.Unlock()
	cb()
}

// Stop cancels any pending callback and waits for a running one to return.
// It is safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.timer = nil
	d.callback = nil
	d.mu.Unlock()

	d.inflight.Wait()
}
