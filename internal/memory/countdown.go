package memory

import (
	"sync"
	"time"
)

const tickInterval = time.Second

// Countdown is the round clock. In TimeAttack it counts remaining seconds
// down and calls expire once at zero; in Classic it only counts elapsed
// seconds and never expires.
//
// The tick and expire callbacks run on the scheduler's goroutine after the
// countdown's own lock has been released.
type Countdown struct {
	sched  Scheduler
	mode   Mode
	tick   func(remaining, elapsed int)
	expire func()

	mu        sync.Mutex
	remaining int
	elapsed   int
	running   bool
	stopped   bool
	gen       uint64
	pending   Cancel
}

// NewCountdown prepares a clock; nothing runs until Start.
func NewCountdown(sched Scheduler, mode Mode, seconds int, tick func(remaining, elapsed int), expire func()) *Countdown {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Countdown{
		sched:     sched,
		mode:      mode,
		tick:      tick,
		expire:    expire,
		remaining: seconds,
	}
}

// Start arms the interval. Calling it again while running, or after Stop,
// does nothing.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.stopped {
		return
	}
	c.running = true
	c.armLocked()
}

// Stop cancels the interval without calling expire. It reports whether the
// clock was running.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasRunning := c.running
	c.running = false
	c.stopped = true
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	return wasRunning
}

// Remaining returns the seconds left in TimeAttack mode.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Elapsed returns the seconds counted since Start.
func (c *Countdown) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) armLocked() {
	gen := c.gen
	c.pending = c.sched.AfterFunc(tickInterval, func() { c.onTick(gen) })
}

func (c *Countdown) onTick(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	expired := false
	if c.mode == TimeAttack {
		if c.remaining > 0 {
			c.remaining--
		}
		if c.remaining == 0 {
			expired = true
			c.running = false
			c.stopped = true
			c.pending = nil
		}
	}
	if !expired {
		c.armLocked()
	}
	remaining, elapsed := c.remaining, c.elapsed
	c.mu.Unlock()

	if c.tick != nil {
		c.tick(remaining, elapsed)
	}
	if expired && c.expire != nil {
		c.expire()
	}
}
