package waitq

import (
	"sync/atomic"
	"time"

	"github.com/doodle732/stateos/outcome"
)

// Queue is the intrusive waiter queue embedded in every blocking
// object's header (spec §3). It is FIFO: the task that has waited
// longest is the one WakeOne selects, matching the scheduler-hooks
// ordering guarantee of spec §4.3.
type Queue struct {
	sentinel dll
	init     uint32
}

func (q *Queue) ensureInit() {
	if atomic.CompareAndSwapUint32(&q.init, 0, 1) {
		q.sentinel.makeEmpty()
	}
}

// IsEmpty reports whether the queue currently has no parked waiters.
func (q *Queue) IsEmpty() bool {
	q.ensureInit()
	return q.sentinel.isEmpty()
}

// Len reports the number of tasks currently parked on q. Callers must
// hold whatever lock guards q (the kernel critical section, in every
// caller of this package); it exists for tests that need to know a
// waiter has actually parked before proceeding, not for any scheduling
// decision.
func (q *Queue) Len() int {
	q.ensureInit()
	n := 0
	for e := q.sentinel.next; e != &q.sentinel; e = e.next {
		n++
	}
	return n
}

// enqueue creates a fresh Waiter, marks it parked, and inserts it as the
// most-recently-arrived entry of q.
func (q *Queue) enqueue() *Waiter {
	q.ensureInit()
	w := newWaiter()
	atomic.StoreUint32(&w.waiting, 1)
	w.q.insertAfter(&q.sentinel)
	return w
}

// WakeOne removes the longest-waiting task from q, if any, assigns it
// ev as its wakeup outcome, and releases it to run. It returns the
// woken Waiter so the caller can inspect its TmpIn/TmpOut cargo slots
// (spec §4.3's wake_one(queue, event) -> Option<Task>).
func (q *Queue) WakeOne(ev outcome.Outcome) *Waiter {
	q.ensureInit()
	if q.sentinel.isEmpty() {
		return nil
	}
	w := q.sentinel.prev.elem // oldest enqueued waiter
	w.q.remove()
	w.Result = ev
	atomic.StoreUint32(&w.waiting, 0)
	w.sem.v()
	return w
}

// WakeAll wakes every task currently parked on q with outcome ev, oldest
// first, matching the FIFO guarantee of spec §5.
func (q *Queue) WakeAll(ev outcome.Outcome) {
	q.ensureInit()
	for !q.sentinel.isEmpty() {
		w := q.sentinel.prev.elem
		w.q.remove()
		w.Result = ev
		atomic.StoreUint32(&w.waiting, 0)
		w.sem.v()
	}
}

// park blocks the calling goroutine on w until it is woken (via
// WakeOne/WakeAll) or until deadline elapses, reporting which. locker
// must be held by the caller on entry; park releases it for the actual
// suspension and reacquires it before returning, mirroring nsync's
// CV.WaitWithDeadline.
func park(q *Queue, locker interface {
	Lock()
	Unlock()
}, w *Waiter, deadline time.Duration, hasDeadline bool) outcome.Outcome {
	var timer *time.Timer
	if hasDeadline {
		timer = w.deadlineTimer
		if timer.Reset(deadline) {
			panic("waitq: deadlineTimer was active")
		}
	}

	locker.Unlock()

	woke := false
	for atomic.LoadUint32(&w.waiting) != 0 {
		if !woke {
			woke = w.sem.p(timer)
		}
		if !woke && atomic.LoadUint32(&w.waiting) != 0 {
			// Timed out with no wakeup race: remove ourselves if we're
			// still enqueued; another thread may be mid-wakeup.
			locker.Lock()
			if atomic.LoadUint32(&w.waiting) != 0 && w.q.isInList(&q.sentinel) {
				w.q.remove()
				w.Result = outcome.Timeout
				atomic.StoreUint32(&w.waiting, 0)
			}
			locker.Unlock()
		}
	}

	if timer != nil && !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	locker.Lock()
	result := w.Result
	freeWaiter(w)
	return result
}

// Enqueue adds a fresh Waiter to q as its most recent entry, without
// blocking; the caller must hold the lock guarding q. It returns the
// Waiter so the caller can stash cargo in TmpIn/TmpOut before blocking
// on it with Park.
func (q *Queue) Enqueue() *Waiter {
	return q.enqueue()
}

// Park blocks on w, an already-enqueued Waiter of q, under locker.
func Park(q *Queue, locker interface {
	Lock()
	Unlock()
}, w *Waiter, deadline time.Duration, hasDeadline bool) outcome.Outcome {
	return park(q, locker, w, deadline, hasDeadline)
}
