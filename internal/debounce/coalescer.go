// Package debounce coalesces bursts of updates into a single deferred call.
//
// Interactive controls such as sliders emit many values in quick succession
// while only the last one matters. A Coalescer keeps the latest value and
// calls its fire function once no update has arrived for the configured
// delay.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for interactive parameter changes.
const DefaultDelay = 100 * time.Millisecond

// Coalescer delivers the latest value passed to Update after delay has elapsed
// without further updates.
//
// Calls to fire never overlap and happen in the order their values were taken,
// so a slow fire cannot be overtaken by an older value. fire must not call
// Flush on its own Coalescer.
type Coalescer[T any] struct {
	delay time.Duration
	fire  func(T)

	// fireMu serialises deliveries; mu guards the fields below.
	fireMu sync.Mutex
	mu     sync.Mutex

	timer   *time.Timer
	value   T
	pending bool
	gen     uint64
	stopped bool
}

// New creates a Coalescer. A non-positive delay selects DefaultDelay.
func New[T any](delay time.Duration, fire func(T)) *Coalescer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coalescer[T]{delay: delay, fire: fire}
}

// Update replaces the pending value with v and restarts the quiet period.
// Updates after Stop are dropped.
func (c *Coalescer[T]) Update(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.value = v
	c.pending = true
	c.gen++
	gen := c.gen

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() { c.deliver(gen) })
}

// deliver fires the pending value if it still belongs to generation gen, or
// unconditionally when gen is 0.
func (c *Coalescer[T]) deliver(gen uint64) bool {
	c.fireMu.Lock()
	defer c.fireMu.Unlock()

	c.mu.Lock()
	if c.stopped || !c.pending || (gen != 0 && gen != c.gen) {
		c.mu.Unlock()
		return false
	}
	v := c.value
	var zero T
	c.value = zero
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.fire(v)
	return true
}

// Flush fires the pending value immediately on the calling goroutine. It
// reports whether anything was pending.
func (c *Coalescer[T]) Flush() bool {
	return c.deliver(0)
}

// Pending reports whether a value is waiting to be fired.
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Cancel drops the pending value, if any, without disabling the Coalescer.
func (c *Coalescer[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

// Stop drops any pending value and disables the Coalescer. A fire already in
// progress is not interrupted.
func (c *Coalescer[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.dropLocked()
}

func (c *Coalescer[T]) dropLocked() {
	c.pending = false
	var zero T
	c.value = zero
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
