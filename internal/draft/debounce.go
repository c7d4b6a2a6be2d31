package draft

import (
	"sync"
	"time"

	"workflow-governance/backend/internal/clock"
)

// DebounceState is the state of a Debouncer.
type DebounceState int

const (
	// DebounceIdle means nothing has been triggered yet.
	DebounceIdle DebounceState = iota
	// DebouncePending means a callback waits for its deadline.
	DebouncePending
	// DebounceFired means the last callback ran.
	DebounceFired
	// DebounceCancelled means the last callback was dropped.
	DebounceCancelled
)

func (s DebounceState) String() string {
	switch s {
	case DebounceIdle:
		return "idle"
	case DebouncePending:
		return "pending"
	case DebounceFired:
		return "fired"
	case DebounceCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Debouncer runs only the last of a burst of callbacks, once delay has
// passed without a new Trigger. Every Trigger supersedes the pending
// callback and restarts the delay.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	delay    time.Duration
	state    DebounceState
	deadline time.Time
	timer    clock.Timer
	fn       func()
	gen      uint64
}

// NewDebouncer creates an idle Debouncer.
func NewDebouncer(c clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: c, delay: delay}
}

// Trigger schedules fn, replacing any pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.fn = fn
	d.state = DebouncePending
	d.deadline = d.clock.Now().Add(d.delay)
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending callback. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != DebouncePending {
		return false
	}
	d.stopLocked()
	d.gen++
	d.fn = nil
	d.state = DebounceCancelled
	return true
}

// Flush runs the pending callback now. It reports whether one ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.state != DebouncePending {
		d.mu.Unlock()
		return false
	}
	d.stopLocked()
	d.gen++
	fn := d.fn
	d.fn = nil
	d.state = DebounceFired
	d.mu.Unlock()

	fn()
	return true
}

// State returns the current state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Deadline returns when the pending callback fires, if one is pending.
func (d *Debouncer) Deadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deadline, d.state == DebouncePending
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != DebouncePending {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.state = DebounceFired
	d.mu.Unlock()

	fn()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
