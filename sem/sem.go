// Package sem implements the counting/binary/direct/limited semaphore
// of spec §3, §4.4, built on waitq's object header and sched's
// scheduler hooks.
//
// Grounded on original_source/StateOS/kernel/inc/ossemaphore.h for the
// operation set (sem_take/waitFor/waitUntil/give/reset/destroy/getValue)
// and mode constants, and on spec.md's design notes for the Mode enum
// that replaces the header's magic-number (0/1/UINT_MAX) discrimination.
package sem

import (
	"math"

	"github.com/doodle732/stateos/clock"
	"github.com/doodle732/stateos/critical"
	"github.com/doodle732/stateos/isr"
	"github.com/doodle732/stateos/klog"
	"github.com/doodle732/stateos/outcome"
	"github.com/doodle732/stateos/sched"
	"github.com/doodle732/stateos/waitq"
)

// Mode discriminates the three semaphore flavours the original kernel
// picked by magic limit value (semDirect=0, semBinary=1,
// semCounting=UINT_MAX). Limited carries its own numeric limit.
type Mode int

const (
	// Direct semaphores can only be given to a task already parked in
	// Wait/WaitFor/WaitUntil; a Give with an empty queue always fails.
	Direct Mode = iota
	// Binary semaphores hold at most one unit.
	Binary
	// Limited semaphores hold up to an arbitrary positive limit.
	Limited
	// Counting semaphores have no practical upper limit.
	Counting
)

// limitFor derives the numeric limit spec.md's data model associates
// with a Mode, given the caller-supplied limit for the Limited case.
func limitFor(mode Mode, limit uint32) uint32 {
	switch mode {
	case Direct:
		return 0
	case Binary:
		return 1
	case Counting:
		return math.MaxUint32
	default:
		return limit
	}
}

// Semaphore is a counting semaphore in the style of a POSIX semaphore,
// specialised by Mode into direct, binary, or (arbitrarily-)limited
// variants (spec §3).
type Semaphore struct {
	hdr     waitq.Header
	clk     *clock.Clock
	mode    Mode
	count   uint32
	limit   uint32
	initial uint32
}

func newSemaphore(clk *clock.Clock, mode Mode, initial, limit uint32, dynamic bool) *Semaphore {
	isr.Assert(clk != nil, "sem: nil clock")
	lim := limitFor(mode, limit)
	if initial > lim {
		initial = lim
	}
	s := &Semaphore{clk: clk, mode: mode, count: initial, limit: lim, initial: initial}
	s.hdr.Init(dynamic)
	klog.V(1).Infof("sem: created mode=%v initial=%d limit=%d dynamic=%v", mode, initial, lim, dynamic)
	return s
}

// New creates a statically-owned semaphore (the Go analogue of a
// compile-time OS_SEM/static_SEM object): Destroy is never meaningful
// for it, only Reset.
func New(clk *clock.Clock, mode Mode, initial uint32, limit uint32) *Semaphore {
	return newSemaphore(clk, mode, initial, limit, false)
}

// NewDynamic creates a semaphore that owns its own lifetime: Destroy
// wakes all waiters with Deleted (the C original's sem_destroy/
// sem_delete, resource_handle pointing at itself).
func NewDynamic(clk *clock.Clock, mode Mode, initial uint32, limit uint32) *Semaphore {
	return newSemaphore(clk, mode, initial, limit, true)
}

// NewDirect creates a direct semaphore: Give only ever succeeds against
// a task already parked in a wait call.
func NewDirect(clk *clock.Clock) *Semaphore { return New(clk, Direct, 0, 0) }

// NewBinary creates a binary semaphore with the given initial value (0
// or 1).
func NewBinary(clk *clock.Clock, initial uint32) *Semaphore {
	return New(clk, Binary, initial, 1)
}

// NewCounting creates a counting semaphore with no practical upper
// bound, starting at initial.
func NewCounting(clk *clock.Clock, initial uint32) *Semaphore {
	return New(clk, Counting, initial, math.MaxUint32)
}

// Take tries to lock the semaphore without waiting. It is safe to call
// from ISR context.
func (s *Semaphore) Take() outcome.Outcome {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if s.count > 0 {
		s.count--
		return outcome.Success
	}
	return outcome.Timeout
}

// WaitFor tries to lock the semaphore, waiting up to delay ticks if it
// can't be locked immediately. Must be called from thread context.
func (s *Semaphore) WaitFor(delay clock.Tick) outcome.Outcome {
	isr.AssertThread("sem.WaitFor")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if s.count > 0 {
		s.count--
		return outcome.Success
	}
	return sched.WaitFor(&critical.Kernel, s.clk, &s.hdr.Queue, delay, nil)
}

// WaitUntil tries to lock the semaphore, waiting until deadline if it
// can't be locked immediately. Must be called from thread context.
func (s *Semaphore) WaitUntil(deadline clock.Tick) outcome.Outcome {
	isr.AssertThread("sem.WaitUntil")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if s.count > 0 {
		s.count--
		return outcome.Success
	}
	return sched.WaitUntil(&critical.Kernel, s.clk, &s.hdr.Queue, deadline, nil)
}

// Wait locks the semaphore, waiting indefinitely if necessary.
func (s *Semaphore) Wait() outcome.Outcome {
	return s.WaitFor(clock.Infinite)
}

// Give tries to unlock the semaphore without waiting. If a task is
// already parked waiting for it, the unit is handed directly to that
// task (the rendezvous bypasses the counter) rather than being stored;
// Direct semaphores can only ever succeed this way. It is safe to call
// from ISR context.
func (s *Semaphore) Give() outcome.Outcome {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if w := sched.WakeOne(&s.hdr.Queue, outcome.Success); w != nil {
		return outcome.Success
	}
	if s.count < s.limit {
		s.count++
		return outcome.Success
	}
	return outcome.Timeout
}

// Reset wakes every parked task with Stopped and restores count to its
// initial value (clamped to limit), matching the C original's
// _SEM_INIT macro treating "initial" as the durable reset target (see
// DESIGN.md's Open Question resolution).
func (s *Semaphore) Reset() {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	s.count = s.initial
	sched.WakeAll(&s.hdr.Queue, outcome.Stopped)
	klog.V(1).Infof("sem: reset to count=%d", s.count)
}

// Destroy wakes every parked task with Deleted and releases the
// semaphore's backing storage. Only meaningful for a dynamically
// created semaphore (spec §3 "Lifecycle"); calling it on a statically
// owned one is a contract violation.
func (s *Semaphore) Destroy() {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	isr.Assert(s.hdr.Dynamic, "sem.Destroy: not a dynamically-created semaphore")
	sched.WakeAll(&s.hdr.Queue, outcome.Deleted)
	klog.V(1).Infof("sem: destroyed")
}

// Value returns the semaphore's current counter value.
func (s *Semaphore) Value() uint32 {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	return s.count
}

func (m Mode) String() string {
	switch m {
	case Direct:
		return "direct"
	case Binary:
		return "binary"
	case Limited:
		return "limited"
	case Counting:
		return "counting"
	default:
		return "unknown"
	}
}
