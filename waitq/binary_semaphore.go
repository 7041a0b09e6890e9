package waitq

import "time"

// parkSemaphore is the primitive a parked waiter actually blocks on: a
// binary semaphore good for exactly one wakeup. Ported from
// nsync/binary_semaphore.go.
type parkSemaphore struct {
	ch chan struct{}
}

func (s *parkSemaphore) init() {
	s.ch = make(chan struct{}, 1)
}

// p waits until the semaphore's count is 1 and decrements it to 0, or
// until deadlineTimer fires.
func (s *parkSemaphore) p(deadlineTimer *time.Timer) (woken bool) {
	var deadlineChan <-chan time.Time
	if deadlineTimer != nil {
		deadlineChan = deadlineTimer.C
	}
	if deadlineTimer != nil {
		select {
		case <-s.ch:
			return true
		case <-deadlineChan:
			return false
		}
	}
	<-s.ch
	return true
}

// v ensures the semaphore's count is 1, waking a parked p.
func (s *parkSemaphore) v() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}
