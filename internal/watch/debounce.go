package watch

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of Trigger calls into a single send on C once
// the burst has been quiet for the configured delay.
type Debouncer struct {
	C <-chan struct{}

	delay time.Duration
	out   chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer returns a debouncer firing delay after the last Trigger.
func NewDebouncer(delay time.Duration) *Debouncer {
	out := make(chan struct{}, 1)
	return &Debouncer{C: out, delay: delay, out: out}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		select {
		case d.out <- struct{}{}:
		default:
		}
	})
}

// Stop cancels a pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
