// Package debounce coalesces bursts of calls into one delayed callback.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers the last scheduled value once the channel has been quiet
// for the requested delay. Each Schedule supersedes any pending one.
//
// A timer that already fired but whose callback has not started yet is
// neutralised by a sequence check, so a superseded value is never delivered.
type Debouncer[T any] struct {
	clock Clock
	fn    func(T)

	mu      sync.Mutex
	timer   Timer
	seq     uint64
	pending bool
	stopped bool
}

func New[T any](clock Clock, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer[T]{clock: clock, fn: fn}
}

// Schedule replaces any pending invocation with fn(value) after delay.
// It is a no-op once the debouncer has been stopped.
func (d *Debouncer[T]) Schedule(value T, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()

	d.seq++
	seq := d.seq
	d.pending = true
	d.timer = d.clock.AfterFunc(delay, func() {
		d.fire(seq, value)
	})
}

// Cancel drops the pending invocation and reports whether there was one.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	wasPending := d.pending
	d.cancelLocked()
	return wasPending
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels the pending invocation and rejects future schedules.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

func (d *Debouncer[T]) fire(seq uint64, value T) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(value)
}
