package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events into a single callback invocation.
// Every Trigger restarts the quiet period; the callback fires once the
// interval passes without a new event, receiving everything collected since
// the previous fire.
type Debouncer struct {
	interval time.Duration
	fire     func(Batch)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	batch *Batch
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// calling fire with the accumulated batch.
func NewDebouncer(interval time.Duration, fire func(Batch)) *Debouncer {
	return &Debouncer{
		interval: interval,
		fire:     fire,
	}
}

// Trigger records c and (re)starts the quiet period.
func (d *Debouncer) Trigger(c Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.batch == nil {
		d.batch = &Batch{}
	}

	d.batch.add(c)
	d.restartLocked()
}

// TriggerOverflow marks the pending batch as incomplete and (re)starts the
// quiet period.
func (d *Debouncer) TriggerOverflow() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.batch == nil {
		d.batch = &Batch{}
	}

	d.batch.Overflow = true
	d.restartLocked()
}

func (d *Debouncer) restartLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}

	// A timer that already fired may be blocked on mu right now; the
	// generation lets it notice it was superseded.
	d.gen++
	gen := d.gen

	d.timer = time.AfterFunc(d.interval, func() { d.flush(gen) })
}

func (d *Debouncer) flush(gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()

	if gen != d.gen || d.batch == nil {
		d.mu.Unlock()
		return
	}

	b := *d.batch
	d.batch = nil
	d.timer = nil
	d.mu.Unlock()

	d.fire(b)
}

// Pending reports whether events are waiting for the quiet period to end.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.batch != nil
}

// Stop cancels any pending callback and discards collected events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.batch = nil
	d.gen++
}
