package waitq

import (
	"sync"
	"testing"
	"time"

	"github.com/doodle732/stateos/outcome"
)

func TestWakeOneFIFO(t *testing.T) {
	var mu sync.Mutex
	var q Queue

	const n = 3
	waiters := make([]*Waiter, n)
	done := make(chan *Waiter, n)
	for i := 0; i < n; i++ {
		mu.Lock()
		waiters[i] = q.Enqueue()
		w := waiters[i]
		mu.Unlock()
		go func() {
			mu.Lock()
			Park(&q, &mu, w, 0, false)
			mu.Unlock()
			done <- w
		}()
	}

	for q.Len() < n {
		time.Sleep(time.Millisecond)
	}

	for i := 0; i < n; i++ {
		mu.Lock()
		woken := q.WakeOne(outcome.Success)
		mu.Unlock()
		if woken != waiters[i] {
			t.Fatalf("WakeOne() woke waiter %d out of FIFO order", i)
		}
		<-done
	}
}

func TestParkDeadlineTimesOut(t *testing.T) {
	var mu sync.Mutex
	var q Queue

	mu.Lock()
	w := q.Enqueue()
	mu.Unlock()

	mu.Lock()
	result := Park(&q, &mu, w, 10*time.Millisecond, true)
	if result != outcome.Timeout {
		t.Fatalf("Park() = %v, want Timeout", result)
	}
	if !q.IsEmpty() {
		t.Fatal("queue should be empty after a self-removed timeout")
	}
}

func TestParkWokenBeforeDeadline(t *testing.T) {
	var mu sync.Mutex
	var q Queue

	mu.Lock()
	w := q.Enqueue()
	mu.Unlock()

	done := make(chan outcome.Outcome, 1)
	go func() {
		mu.Lock()
		done <- Park(&q, &mu, w, time.Hour, true)
	}()

	for q.Len() < 1 {
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	q.WakeOne(outcome.Success)
	mu.Unlock()

	if got := <-done; got != outcome.Success {
		t.Fatalf("Park() = %v, want Success", got)
	}
}
