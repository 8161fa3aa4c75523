// Package debounce coalesces bursts of requests keyed by input identity.
// A new trigger for a key supersedes (cancels) any pending one; only the
// last request within a quiet period fires. The primitive is independent
// of any UI toolkit: interactive front ends use it to delay path
// validation until typing pauses.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays function execution per key until delay has elapsed with
// no newer trigger for that key.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*time.Timer
	stopped bool
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*time.Timer),
	}
}

// Trigger schedules fn to run after the quiet period, superseding any
// pending request for the same key. fn runs on a timer goroutine; callers
// updating shared state must synchronize.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if t, ok := d.pending[key]; ok {
		t.Stop()
	}

	d.pending[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, key)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

// Cancel drops any pending request for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.pending[key]; ok {
		t.Stop()
		delete(d.pending, key)
	}
}

// Stop cancels all pending requests and rejects future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, t := range d.pending {
		t.Stop()
		delete(d.pending, key)
	}
}
