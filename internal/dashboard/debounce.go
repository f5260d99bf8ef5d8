package dashboard

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiescence interval between the last filter
// edit and the fetch cycle it triggers.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer delivers the most recent snapshot once edits stop for a fixed
// quiescence window. A trigger arriving before the window elapses discards
// the pending delivery and restarts the timer, so at most one delivery
// happens per window and it always carries the last value.
type Debouncer struct {
	window  time.Duration
	deliver func(FilterSnapshot)

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool
}

// NewDebouncer constructs a Debouncer invoking deliver on its own goroutine.
func NewDebouncer(window time.Duration, deliver func(FilterSnapshot)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, deliver: deliver}
}

// Trigger schedules delivery of snap, superseding any pending delivery.
// Each trigger takes a sequence number re-checked inside the callback, so
// a timer that fires concurrently with a superseding trigger still drops
// its snapshot.
func (d *Debouncer) Trigger(snap FilterSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := !d.closed && seq == d.seq
		d.mu.Unlock()
		if !current {
			return
		}
		d.deliver(snap)
	})
}

// Close cancels any pending delivery and rejects further triggers.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
