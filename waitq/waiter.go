// Package waitq implements the object header and intrusive waiter
// queue shared by every blocking primitive (spec §3, §4.3).
package waitq

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/doodle732/stateos/outcome"
)

// dll is a node in a circular doubly-linked list: either a sentinel
// (the queue head, whose elem is nil) or a waiter's link (elem points
// back at the owning *Waiter). Ported from nsync/waiter.go's dll type,
// used both as Queue's sentinel (queue.go) and as the link embedded in
// each Waiter, below.
type dll struct {
	next, prev *dll
	elem       *Waiter
}

// makeEmpty makes list *l empty. Requires that *l is not currently part
// of a non-empty list.
func (l *dll) makeEmpty() {
	l.next = l
	l.prev = l
}

// isEmpty reports whether list *l is empty.
func (l *dll) isEmpty() bool {
	return l.next == l
}

// insertAfter inserts *e into the list after position *p. Requires that
// *e is not currently part of a list and that *p is part of a list.
func (e *dll) insertAfter(p *dll) {
	e.next = p.next
	e.prev = p
	e.next.prev = e
	e.prev.next = e
}

// remove removes *e from the list it is currently in.
func (e *dll) remove() {
	e.next.prev = e.prev
	e.prev.next = e.next
}

// isInList reports whether e can be found in list l.
func (e *dll) isInList(l *dll) bool {
	p := l.next
	for p != e && p != l {
		p = p.next
	}
	return p == e
}

// spinDelay is used in spinloops to back off before retrying, yielding
// to the scheduler once the loop has spun for a while. Ported from
// nsync/common.go's spinDelay; used only by the waiter free-list guard
// below.
func spinDelay(attempts uint) uint {
	if attempts < 7 {
		for i := 0; i != 1<<attempts; i++ {
		}
		attempts++
	} else {
		runtime.Gosched()
	}
	return attempts
}

// spinTestAndSet spins until (*w & test) == 0, then atomically performs
// *w |= set and returns the previous value of *w. Ported from
// nsync/common.go's spinTestAndSet; used to guard the waiter free-list.
func spinTestAndSet(w *uint32, test, set uint32) uint32 {
	var attempts uint
	old := atomic.LoadUint32(w)
	for (old&test) != 0 || !atomic.CompareAndSwapUint32(w, old, old|set) {
		attempts = spinDelay(attempts)
		old = atomic.LoadUint32(w)
	}
	return old
}

// Waiter is the per-blocked-task wait record: the task descriptor of
// spec §3, specialised to this module. It carries the dll link used to
// enqueue it on an object's Queue, the parkSemaphore the owning
// goroutine actually blocks on, a preallocated deadline timer, and the
// tmp staging slots used to smuggle in-flight event data across the
// block/wake boundary (spec §3, design notes: "Data smuggling via
// tmp.in/out").
//
// Ported from nsync/waiter.go's waiter type; cvMu (CV-to-Mu transfer) is
// dropped since this module has no condition-variable/mutex pair to
// transfer between, and TmpIn/TmpOut/Result replace it with the cargo
// slots spec.md's design actually needs.
type Waiter struct {
	q             dll
	sem           parkSemaphore
	deadlineTimer *time.Timer
	waiting       uint32 // non-zero <=> still parked; read/written atomically

	// TmpIn is where a pending consumer expects to receive its word;
	// TmpOut is the word a pending producer wants to deliver. Exactly
	// one of the two is meaningful for any given waiter, depending on
	// which side of a rendezvous it is blocked on.
	TmpIn  *uint32
	TmpOut uint32

	// Result is written by whichever call wakes this waiter, before it
	// observes waiting==0.
	Result outcome.Outcome
}

var freeWaiters dll
var freeWaitersMu uint32
var freeWaitersInit uint32

// newWaiter returns an unused Waiter, allocating one if the free pool is
// empty. Ported from nsync/waiter.go's newWaiter.
func newWaiter() *Waiter {
	spinTestAndSet(&freeWaitersMu, 1, 1)
	if atomic.CompareAndSwapUint32(&freeWaitersInit, 0, 1) {
		freeWaiters.makeEmpty()
	}
	var w *Waiter
	if !freeWaiters.isEmpty() {
		q := freeWaiters.next
		q.remove()
		w = q.elem
	}
	atomic.StoreUint32(&freeWaitersMu, 0)
	if w == nil {
		w = new(Waiter)
		w.sem.init()
		w.deadlineTimer = time.NewTimer(time.Duration(math.MaxInt64))
		w.deadlineTimer.Stop()
		w.q.elem = w
	}
	w.TmpIn = nil
	w.TmpOut = 0
	w.Result = outcome.Success
	return w
}

// freeWaiter returns w to the free pool. Ported from
// nsync/waiter.go's freeWaiter.
func freeWaiter(w *Waiter) {
	spinTestAndSet(&freeWaitersMu, 1, 1)
	w.q.insertAfter(&freeWaiters)
	atomic.StoreUint32(&freeWaitersMu, 0)
}
