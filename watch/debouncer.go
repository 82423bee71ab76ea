// Package watch detects finished replay files in a directory.
//
// Filesystem notifications arrive in bursts while the game client writes a
// replay. The Debouncer collapses a burst into a single arrival once the
// directory has been quiet for the configured delay, and WaitStable then
// confirms the file itself has stopped growing before it is handed on.
package watch

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a pending arrival is released.
const DefaultDelay = 30 * time.Second

// Debouncer holds at most one pending arrival.
//
// Every Notify replaces the pending path and restarts the timer, so the last
// path notified wins. When the timer expires the path moves into a ready slot
// of capacity one. If the previous ready path has not been consumed yet it is
// overwritten and reported through the supersede callback.
type Debouncer struct {
	delay       time.Duration
	onSupersede func(path string)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending string
	armed   bool
	stopped bool

	ready chan string
}

// NewDebouncer creates a debouncer releasing arrivals after delay.
// onSupersede, if non-nil, is called with every path that is dropped in
// favour of a newer one. It runs with the debouncer lock held and must not
// call back into the Debouncer.
func NewDebouncer(delay time.Duration, onSupersede func(path string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:       delay,
		onSupersede: onSupersede,
		ready:       make(chan string, 1),
	}
}

// Notify records an event for path and rearms the timer.
func (d *Debouncer) Notify(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.armed && d.pending != path {
		d.supersede(d.pending)
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending = path
	d.armed = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire releases the pending path if gen is still current. A timer that
// expired while Notify was replacing it carries an old gen and is ignored.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.armed || gen != d.gen {
		return
	}
	path := d.pending
	d.pending = ""
	d.armed = false

	select {
	case d.ready <- path:
		return
	default:
	}

	// Slot full: overwrite. fire is the only sender and holds mu, so the
	// send after draining cannot block.
	select {
	case old := <-d.ready:
		d.supersede(old)
	default:
	}
	d.ready <- path
}

func (d *Debouncer) supersede(path string) {
	if d.onSupersede != nil {
		d.onSupersede(path)
	}
}

// Ready delivers settled arrivals. The channel is never closed.
func (d *Debouncer) Ready() <-chan string {
	return d.ready
}

// Pending returns the path waiting on the timer, if any.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.armed
}

// Stop cancels the pending timer. Later notifications are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.armed = false
	d.pending = ""
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
