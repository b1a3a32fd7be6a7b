package persist

import (
	"sync"
	"time"
)

// SaveQuietPeriod is how long the store must stay unchanged before a
// pending autosave fires. A new change inside the window cancels and
// reschedules the write, coalescing bursts into one persisted state.
const SaveQuietPeriod = time.Second

// SavingIndicatorMin is the minimum time the saving indicator stays
// visible, independent of actual write latency.
const SavingIndicatorMin = 500 * time.Millisecond

// debouncer is the single cancellable scheduled task in the system: a
// pending write that can be cancelled and rescheduled on every state
// change and is cancelled unconditionally on teardown.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// Schedule cancels any pending task and schedules fn after the quiet
// period. No-op after Stop.
func (d *debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops any pending task without disabling future scheduling.
// Reports whether a task was pending.
func (d *debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	pending := d.timer.Stop()
	d.timer = nil
	return pending
}

// Stop cancels any pending task and rejects future scheduling. Used on
// teardown so a late timer can never write against a torn-down store.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
