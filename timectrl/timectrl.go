package timectrl

import (
	"sync"
	"time"
)

// DefaultEpoch is the simulated start time used when a scenario does not
// choose one. Runs must not depend on the host clock, or equally-seeded runs
// would produce different report timestamps.
var DefaultEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// SimClock is an interface for reading simulation time. Components that stamp
// density reports depend on this abstraction rather than on the engine's
// concrete clock, enabling testability.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// Step returns the index of the current simulation step, starting at 0.
	Step() int
}

// Clock maps discrete simulation steps onto simulated time. The engine calls
// Advance once per step; everything else only reads.
type Clock struct {
	mu    sync.RWMutex
	start time.Time
	tick  time.Duration

	step    int
	current time.Time

	listeners []func(step int, now time.Time)
}

// New constructs a clock at step 0. Tick is the simulated duration of one
// step.
func New(start time.Time, tick time.Duration) *Clock {
	return &Clock{
		start:   start,
		tick:    tick,
		current: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Step returns the current step index. Implements SimClock.
func (c *Clock) Step() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.step
}

// Tick returns the simulated duration of one step.
func (c *Clock) Tick() time.Duration {
	return c.tick
}

// AddListener registers a callback invoked after every Advance.
func (c *Clock) AddListener(fn func(step int, now time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Advance moves the clock forward by one tick and returns the new simulation
// time. Listeners are notified outside the lock.
func (c *Clock) Advance() time.Time {
	c.mu.Lock()
	c.step++
	c.current = c.start.Add(time.Duration(c.step) * c.tick)
	step, now := c.step, c.current
	listeners := append([]func(int, time.Time){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(step, now)
	}
	return now
}
