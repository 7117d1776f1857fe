// Package syncer reconciles the canvas against the external workspace
// service: debounced auto-export when a sheet is linked, manual export,
// and the two import policies (additive merge, destructive replace).
package syncer

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period collapsing a burst of state
// changes into one export.
const DefaultDebounce = 1000 * time.Millisecond

// Debouncer coalesces triggers into a single delayed call of fn. Every
// Trigger cancels the pending timer and starts a fresh one, so only the
// last trigger of a burst fires. There is never more than one timer.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	fn    func()
}

// NewDebouncer creates a debouncer calling fn after the quiet period.
// A non-positive delay falls back to DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger cancels any pending timer and schedules fn after the delay.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending timer, if any. A call already in flight is not
// interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
