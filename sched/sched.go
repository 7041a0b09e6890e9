// Package sched implements the scheduler hooks spec §4.3 requires of
// the environment: wait (suspend the current task on a queue until
// woken or timed out) and WakeOne/WakeAll (release parked tasks with a
// given outcome). It is the Tick-aware facade over waitq's lower-level
// enqueue/wake primitives, generalizing nsync/cv.go's
// WaitWithDeadline/Signal/Broadcast (see DESIGN.md).
package sched

import (
	"time"

	"github.com/doodle732/stateos/clock"
	"github.com/doodle732/stateos/critical"
	"github.com/doodle732/stateos/outcome"
	"github.com/doodle732/stateos/waitq"
)

// Waiter re-exports waitq.Waiter so callers of this package (sem,
// evqueue) never need to import waitq directly for the cargo slots.
type Waiter = waitq.Waiter

// WaitFor suspends the current task on q for up to delay ticks,
// returning the wakeup outcome. sec must be held by the caller on
// entry; WaitFor releases it for the actual suspension and reacquires
// it before returning (spec §4.2, §5).
//
// delay==clock.Immediate returns Timeout at once without ever enqueuing
// a waiter (spec §4.5 edge case). setup, if non-nil, is called with the
// freshly enqueued Waiter before it is parked, so the caller can stash
// TmpIn/TmpOut cargo exactly once a park is actually going to happen.
func WaitFor(sec *critical.Section, clk *clock.Clock, q *waitq.Queue, delay clock.Tick, setup func(w *Waiter)) outcome.Outcome {
	if delay == clock.Immediate {
		return outcome.Timeout
	}
	w := q.Enqueue()
	if setup != nil {
		setup(w)
	}
	if delay == clock.Infinite {
		return waitq.Park(q, sec.Locker(), w, 0, false)
	}
	d := time.Duration(delay) * time.Second / time.Duration(clk.Frequency())
	return waitq.Park(q, sec.Locker(), w, d, true)
}

// WaitUntil suspends the current task on q until woken or until
// clk.Now() reaches deadline, returning the wakeup outcome.
func WaitUntil(sec *critical.Section, clk *clock.Clock, q *waitq.Queue, deadline clock.Tick, setup func(w *Waiter)) outcome.Outcome {
	if deadline == clock.Infinite {
		w := q.Enqueue()
		if setup != nil {
			setup(w)
		}
		return waitq.Park(q, sec.Locker(), w, 0, false)
	}
	now := clk.Now()
	if clock.Expired(now, deadline) {
		return outcome.Timeout
	}
	w := q.Enqueue()
	if setup != nil {
		setup(w)
	}
	remaining := deadline - now
	d := time.Duration(remaining) * time.Second / time.Duration(clk.Frequency())
	return waitq.Park(q, sec.Locker(), w, d, true)
}

// WakeOne removes the longest-waiting task from q, if any, and releases
// it with outcome ev. It returns the woken Waiter so the caller can
// inspect TmpIn/TmpOut before the woken task observes the critical
// section again (spec §4.3's wake_one(queue, event) -> Option<Task>).
func WakeOne(q *waitq.Queue, ev outcome.Outcome) *Waiter {
	return q.WakeOne(ev)
}

// WakeAll releases every task parked on q with outcome ev.
func WakeAll(q *waitq.Queue, ev outcome.Outcome) {
	q.WakeAll(ev)
}
