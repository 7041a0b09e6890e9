// Package clock implements the kernel's steady clock: a monotonic tick
// counter and the arithmetic needed to normalise either a relative
// duration or an absolute deadline into the scheduler's argument form.
//
// Grounded on original_source/StateOS/kernel/inc/osclock.h (sys_time,
// Clock::count/Clock::until) and on nsync/common.go's treatment of "no
// deadline" as a sentinel far in the future.
package clock

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/doodle732/stateos/kconfig"
)

// Tick is the kernel's unit of time: 1/Frequency seconds. Tick counters
// are unsigned and wrap; comparisons against a deadline must treat the
// difference as signed (see Expired).
type Tick uint32

const (
	// Immediate is the delay value meaning "don't wait at all."
	Immediate Tick = 0
	// Infinite is the delay value meaning "wait forever."
	Infinite Tick = math.MaxUint32
)

// Clock is a steady, monotonically increasing tick counter running at a
// fixed frequency.
type Clock struct {
	freq    uint32
	ticks   uint32 // atomic
	stop    chan struct{}
	started bool
}

// New creates a Clock driven by a background ticker goroutine advancing
// at cfg.Frequency Hz, standing in for the hardware tick interrupt
// (sys_time's underlying counter) of the original kernel.
func New(cfg kconfig.Config) *Clock {
	freq := cfg.Frequency
	if freq == 0 {
		freq = kconfig.DefaultFrequency
	}
	c := &Clock{freq: freq, stop: make(chan struct{})}
	period := time.Second / time.Duration(freq)
	if period <= 0 {
		period = time.Microsecond
	}
	c.started = true
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				atomic.AddUint32(&c.ticks, 1)
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// NewManual creates a Clock whose tick counter only advances when Advance
// is called explicitly. Scenario tests use this so that Now does not
// move on its own. Wait timeouts are not driven by this counter: the
// scheduler converts a tick delay into a real-time duration at the
// clock's frequency, so Advance does not expire a parked wait.
func NewManual(cfg kconfig.Config) *Clock {
	freq := cfg.Frequency
	if freq == 0 {
		freq = kconfig.DefaultFrequency
	}
	return &Clock{freq: freq}
}

// Advance adds n ticks to the Clock's counter. On a Clock created with
// New the n ticks are added on top of those of the background ticker.
func (c *Clock) Advance(n uint32) {
	atomic.AddUint32(&c.ticks, n)
}

// Close stops the background ticker goroutine of a Clock created with
// New. It is safe to call on a manual Clock (it is a no-op there).
func (c *Clock) Close() {
	if c.started {
		close(c.stop)
	}
}

// Now returns the current value of the tick counter.
func (c *Clock) Now() Tick {
	return Tick(atomic.LoadUint32(&c.ticks))
}

// Frequency returns the clock's tick rate in Hz.
func (c *Clock) Frequency() uint32 {
	return c.freq
}

// Count normalises a relative duration to the scheduler's delay
// argument, i.e. a tick count. Durations are never negative; a zero or
// negative duration normalises to Immediate.
func (c *Clock) Count(delay time.Duration) Tick {
	if delay <= 0 {
		return Immediate
	}
	ticks := uint64(delay) * uint64(c.freq) / uint64(time.Second)
	if ticks > uint64(Infinite) {
		return Infinite
	}
	return Tick(ticks)
}

// Until normalises an absolute time.Time deadline to the scheduler's
// deadline argument form: ticks relative to the clock's own epoch.
func (c *Clock) Until(deadline time.Time) Tick {
	now := time.Now()
	if !deadline.After(now) {
		return c.Now()
	}
	return c.Now() + c.Count(deadline.Sub(now))
}

// Expired reports whether deadline has passed as of now, using a signed
// interpretation of (deadline-now) so that horizons up to half the
// counter range are handled correctly across wraparound (spec §4.1).
func Expired(now, deadline Tick) bool {
	return int32(deadline-now) <= 0
}
