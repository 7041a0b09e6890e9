package evqueue

import (
	"testing"
	"time"

	"github.com/doodle732/stateos/clock"
	"github.com/doodle732/stateos/critical"
	"github.com/doodle732/stateos/kconfig"
	"github.com/doodle732/stateos/outcome"
)

func newClock() *clock.Clock {
	return clock.NewManual(kconfig.Config{Frequency: 1000})
}

func parkedLen(q *Queue) int {
	c := critical.Kernel.Lock()
	defer critical.Kernel.Unlock(c)
	return q.hdr.Queue.Len()
}

func waitUntilParked(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for parkedLen(q) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a parked waiter")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGiveTakeFIFO(t *testing.T) {
	clk := newClock()
	q := New(clk, 4)
	for i := Word(0); i < 3; i++ {
		if got := q.Give(i); got != outcome.Success {
			t.Fatalf("Give(%d) = %v, want Success", i, got)
		}
	}
	if got := q.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
	for i := Word(0); i < 3; i++ {
		var d Word
		if got := q.Take(&d); got != outcome.Success {
			t.Fatalf("Take() = %v, want Success", got)
		}
		if d != i {
			t.Fatalf("Take() = %d, want %d (FIFO order)", d, i)
		}
	}
}

func TestGiveFullReturnsTimeout(t *testing.T) {
	clk := newClock()
	q := New(clk, 1)
	if got := q.Give(1); got != outcome.Success {
		t.Fatalf("Give(1) = %v, want Success", got)
	}
	if got := q.Give(2); got != outcome.Timeout {
		t.Fatalf("Give(2) on full queue = %v, want Timeout", got)
	}
}

// TestRendezvousOnEmptyQueue exercises putAndDrain (priv_evq_putUpdate):
// a consumer parked on an empty queue is handed the given word at once,
// leaving the buffer empty.
func TestRendezvousOnEmptyQueue(t *testing.T) {
	clk := newClock()
	q := New(clk, 2)
	var got Word
	done := make(chan outcome.Outcome, 1)
	go func() { done <- q.Wait(&got) }()
	waitUntilParked(t, q)

	if ev := q.Give(42); ev != outcome.Success {
		t.Fatalf("Give(42) = %v, want Success", ev)
	}
	if ev := <-done; ev != outcome.Success {
		t.Fatalf("Wait() = %v, want Success", ev)
	}
	if got != 42 {
		t.Fatalf("Wait() received %d, want 42", got)
	}
	if n := q.Count(); n != 0 {
		t.Fatalf("Count() = %d, want 0 (data delivered directly)", n)
	}
}

// TestProducerBackpressure exercises getAndDrain (priv_evq_getUpdate):
// a consumer's Take on a full queue receives the oldest word, and the
// word of the producer parked on that queue is admitted into the freed
// slot.
func TestProducerBackpressure(t *testing.T) {
	clk := newClock()
	q := New(clk, 1)
	q.Give(1)

	done := make(chan outcome.Outcome, 1)
	go func() { done <- q.Send(2) }()
	waitUntilParked(t, q)

	var d Word
	if ev := q.Take(&d); ev != outcome.Success {
		t.Fatalf("Take() = %v, want Success", ev)
	}
	if d != 1 {
		t.Fatalf("Take() = %d, want 1 (oldest first)", d)
	}
	if ev := <-done; ev != outcome.Success {
		t.Fatalf("Send() = %v, want Success", ev)
	}
	if n := q.Count(); n != 1 {
		t.Fatalf("Count() = %d, want 1 (producer's word admitted directly)", n)
	}
}

// TestPushOverwritesOldest exercises evq_push: a full queue's oldest
// entry is discarded to make room, unconditionally.
func TestPushOverwritesOldest(t *testing.T) {
	clk := newClock()
	q := New(clk, 2)
	q.Give(1)
	q.Give(2)
	q.Push(3)
	if n := q.Count(); n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}
	var d Word
	q.Take(&d)
	if d != 2 {
		t.Fatalf("Take() after Push = %d, want 2 (1 was overwritten)", d)
	}
	q.Take(&d)
	if d != 3 {
		t.Fatalf("Take() after Push = %d, want 3", d)
	}
}

// TestPushWakesParkedProducer verifies overwriteDrain's rendezvous: a
// Push against a full queue that also has a producer parked on it
// admits that producer's word instead of leaving the freed slot empty.
// Traced against priv_evq_skipUpdate in oseventqueue.c: overwriteDrain
// loops "while count == limit", so the admitted producer word only
// survives the loop once the queue has at least one more slot for it
// to settle into without being skipped straight back out again.
func TestPushWakesParkedProducer(t *testing.T) {
	clk := newClock()
	q := New(clk, 2)
	q.Give(1)
	q.Give(2)

	done := make(chan outcome.Outcome, 1)
	go func() { done <- q.Send(3) }()
	waitUntilParked(t, q)

	q.Push(99)
	if ev := <-done; ev != outcome.Success {
		t.Fatalf("Send() = %v, want Success", ev)
	}
	if n := q.Count(); n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}

	var d Word
	q.Take(&d)
	if d != 3 {
		t.Fatalf("Take() = %d, want 3 (parked producer's word admitted, 1 and 2 both skipped)", d)
	}
	q.Take(&d)
	if d != 99 {
		t.Fatalf("Take() = %d, want 99", d)
	}
}

func TestKillWakesWithStopped(t *testing.T) {
	clk := newClock()
	q := New(clk, 1)
	var d Word
	done := make(chan outcome.Outcome, 1)
	go func() { done <- q.Wait(&d) }()
	waitUntilParked(t, q)
	q.Kill()
	if ev := <-done; ev != outcome.Stopped {
		t.Fatalf("Wait() = %v, want Stopped", ev)
	}
}

func TestDeleteWakesWithDeleted(t *testing.T) {
	clk := newClock()
	q := NewDynamic(clk, 1)
	var d Word
	done := make(chan outcome.Outcome, 1)
	go func() { done <- q.Wait(&d) }()
	waitUntilParked(t, q)
	q.Delete()
	if ev := <-done; ev != outcome.Deleted {
		t.Fatalf("Wait() = %v, want Deleted", ev)
	}
}

func TestSpaceAndLimit(t *testing.T) {
	clk := newClock()
	q := New(clk, 4)
	if got := q.Limit(); got != 4 {
		t.Fatalf("Limit() = %d, want 4", got)
	}
	if got := q.Space(); got != 4 {
		t.Fatalf("Space() = %d, want 4", got)
	}
	q.Give(1)
	if got := q.Space(); got != 3 {
		t.Fatalf("Space() = %d, want 3", got)
	}
}
