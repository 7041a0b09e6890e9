// Package evqueue implements the bounded event queue of spec §4.5: a
// circular buffer of words with blocking producer/consumer rendezvous
// and overwrite (push) semantics.
//
// Grounded line-for-line on
// original_source/StateOS/kernel/src/oseventqueue.c: priv_evq_get/put/
// skip are the raw circular-buffer primitives, and
// priv_evq_getUpdate/putUpdate/skipUpdate are the rendezvous helpers
// that hand data directly to/from a waiting task's tmp slot instead of
// only touching the buffer (the "data smuggling" pattern of spec §3).
package evqueue

import (
	"github.com/doodle732/stateos/clock"
	"github.com/doodle732/stateos/critical"
	"github.com/doodle732/stateos/isr"
	"github.com/doodle732/stateos/klog"
	"github.com/doodle732/stateos/outcome"
	"github.com/doodle732/stateos/sched"
	"github.com/doodle732/stateos/waitq"
)

// Word is the unit of data the queue moves; the original kernel's
// "unsigned" cell.
type Word = uint32

// Queue is a bounded, blocking circular buffer of Words (spec §4.5).
type Queue struct {
	hdr waitq.Header
	clk *clock.Clock

	data  []Word
	head  int
	tail  int
	count int
	limit int
}

func newQueue(clk *clock.Clock, limit uint32, dynamic bool) *Queue {
	isr.Assert(clk != nil, "evqueue: nil clock")
	isr.Assert(limit > 0, "evqueue: zero limit")
	q := &Queue{clk: clk, data: make([]Word, limit), limit: int(limit)}
	q.hdr.Init(dynamic)
	klog.V(1).Infof("evqueue: created limit=%d dynamic=%v", limit, dynamic)
	return q
}

// New creates a statically-owned queue of the given capacity.
func New(clk *clock.Clock, limit uint32) *Queue {
	return newQueue(clk, limit, false)
}

// NewDynamic creates a queue that owns its own lifetime: Delete wakes
// all waiters with Deleted and releases the buffer (spec §3
// "Lifecycle").
func NewDynamic(clk *clock.Clock, limit uint32) *Queue {
	return newQueue(clk, limit, true)
}

// --- raw circular-buffer primitives, ported from priv_evq_get/put/skip ---

func (q *Queue) bufGet() Word {
	d := q.data[q.head]
	q.head++
	if q.head == q.limit {
		q.head = 0
	}
	q.count--
	return d
}

func (q *Queue) bufPut(d Word) {
	q.data[q.tail] = d
	q.tail++
	if q.tail == q.limit {
		q.tail = 0
	}
	q.count++
}

func (q *Queue) bufSkip() {
	q.count--
	q.head++
	if q.head == q.limit {
		q.head = 0
	}
}

// --- rendezvous helpers, ported from priv_evq_getUpdate/putUpdate/skipUpdate ---

// getAndDrain removes the oldest word for a consumer, then, if a
// producer is parked waiting to send, immediately admits its word into
// the freed slot and releases it.
func (q *Queue) getAndDrain() Word {
	d := q.bufGet()
	if w := sched.WakeOne(&q.hdr.Queue, outcome.Success); w != nil {
		q.bufPut(w.TmpOut)
	}
	return d
}

// putAndDrain inserts data for a producer, then, if a consumer is
// parked waiting to receive, immediately hands it the oldest word and
// releases it.
func (q *Queue) putAndDrain(data Word) {
	q.bufPut(data)
	if w := sched.WakeOne(&q.hdr.Queue, outcome.Success); w != nil {
		*w.TmpIn = q.bufGet()
	}
}

// overwriteDrain makes room for an unconditional Push by discarding
// the oldest entries, releasing one parked producer per discarded slot,
// until the buffer is no longer full.
func (q *Queue) overwriteDrain() {
	for q.count == q.limit {
		q.bufSkip()
		if w := sched.WakeOne(&q.hdr.Queue, outcome.Success); w != nil {
			q.bufPut(w.TmpOut)
		}
	}
}

// Take removes the oldest word into *data without waiting. It is safe
// to call from ISR context.
func (q *Queue) Take(data *Word) outcome.Outcome {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count == 0 {
		return outcome.Timeout
	}
	*data = q.getAndDrain()
	return outcome.Success
}

// WaitFor removes the oldest word into *data, waiting up to delay
// ticks if the queue is empty. Must be called from thread context.
func (q *Queue) WaitFor(data *Word, delay clock.Tick) outcome.Outcome {
	isr.AssertThread("evqueue.WaitFor")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count > 0 {
		*data = q.getAndDrain()
		return outcome.Success
	}
	return sched.WaitFor(&critical.Kernel, q.clk, &q.hdr.Queue, delay, func(w *sched.Waiter) {
		w.TmpIn = data
	})
}

// WaitUntil removes the oldest word into *data, waiting until deadline
// if the queue is empty.
func (q *Queue) WaitUntil(data *Word, deadline clock.Tick) outcome.Outcome {
	isr.AssertThread("evqueue.WaitUntil")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count > 0 {
		*data = q.getAndDrain()
		return outcome.Success
	}
	return sched.WaitUntil(&critical.Kernel, q.clk, &q.hdr.Queue, deadline, func(w *sched.Waiter) {
		w.TmpIn = data
	})
}

// Wait removes the oldest word into *data, waiting indefinitely if
// necessary.
func (q *Queue) Wait(data *Word) outcome.Outcome {
	return q.WaitFor(data, clock.Infinite)
}

// Give inserts data without waiting, failing if the queue is full. It
// is safe to call from ISR context.
func (q *Queue) Give(data Word) outcome.Outcome {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count == q.limit {
		return outcome.Timeout
	}
	q.putAndDrain(data)
	return outcome.Success
}

// SendFor inserts data, waiting up to delay ticks if the queue is full.
// Must be called from thread context.
func (q *Queue) SendFor(data Word, delay clock.Tick) outcome.Outcome {
	isr.AssertThread("evqueue.SendFor")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count < q.limit {
		q.putAndDrain(data)
		return outcome.Success
	}
	return sched.WaitFor(&critical.Kernel, q.clk, &q.hdr.Queue, delay, func(w *sched.Waiter) {
		w.TmpOut = data
	})
}

// SendUntil inserts data, waiting until deadline if the queue is full.
func (q *Queue) SendUntil(data Word, deadline clock.Tick) outcome.Outcome {
	isr.AssertThread("evqueue.SendUntil")
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	if q.count < q.limit {
		q.putAndDrain(data)
		return outcome.Success
	}
	return sched.WaitUntil(&critical.Kernel, q.clk, &q.hdr.Queue, deadline, func(w *sched.Waiter) {
		w.TmpOut = data
	})
}

// Send inserts data, waiting indefinitely if necessary.
func (q *Queue) Send(data Word) outcome.Outcome {
	return q.SendFor(data, clock.Infinite)
}

// Push inserts data unconditionally, discarding the oldest entry first
// if the queue is full (spec §4.5's overwrite semantics). It is safe to
// call from ISR context.
func (q *Queue) Push(data Word) {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	q.overwriteDrain()
	q.putAndDrain(data)
}

// Kill empties the queue and wakes every parked task with Stopped,
// without releasing backing storage.
func (q *Queue) Kill() {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	q.count, q.head, q.tail = 0, 0, 0
	sched.WakeAll(&q.hdr.Queue, outcome.Stopped)
	klog.V(1).Infof("evqueue: killed")
}

// Delete empties the queue, wakes every parked task with Deleted, and
// releases its backing storage. Only meaningful for a dynamically
// created queue.
func (q *Queue) Delete() {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	isr.Assert(q.hdr.Dynamic, "evqueue.Delete: not a dynamically-created queue")
	q.count, q.head, q.tail = 0, 0, 0
	sched.WakeAll(&q.hdr.Queue, outcome.Deleted)
	q.data = nil
	klog.V(1).Infof("evqueue: deleted")
}

// Count returns the number of words currently buffered.
func (q *Queue) Count() int {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	return q.count
}

// Space returns the number of additional words that can be buffered
// before the queue is full.
func (q *Queue) Space() int {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	return q.limit - q.count
}

// Limit returns the queue's total capacity.
func (q *Queue) Limit() int {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	return q.limit
}
