// Package critical implements the kernel's single global critical
// section: the lock every state-touching primitive operation takes
// before inspecting or mutating an object's header, counters, or waiter
// queue (spec §4.2, §5).
//
// Grounded on nsync/mu.go's Mu (the lock/unlock discipline and
// AssertHeld), simplified to a plain sync.Mutex: the C original's
// "nestable" critical section exists because masking interrupts on a
// single CPU has no concurrent-access hazard to guard against while
// masked, a property a goroutine-based Lock() can't reproduce without
// inventing per-task identity the donor has no library for. The only
// place the lock is released and reacquired mid-hold is waitq.Park
// (reached through sched.WaitFor/WaitUntil), which mirrors nsync.CV.WaitWithDeadline's own mu.Unlock()/mu.Lock()
// pair around the actual suspension.
package critical

import "sync"

// Cookie is returned by Lock and consumed by Unlock. It carries no
// state; its only purpose is to make call sites visually pair
// Lock/Unlock, the way the C original's lock()/unlock(cookie) do.
type Cookie struct{}

// Section is a kernel critical section. The zero value is an unlocked,
// ready-to-use Section.
type Section struct {
	mu sync.Mutex
}

// Lock disables preemption of kernel data: no other call to any
// primitive built on the same Section may proceed until Unlock.
func (s *Section) Lock() Cookie {
	s.mu.Lock()
	return Cookie{}
}

// Unlock releases the critical section acquired by the matching Lock.
func (s *Section) Unlock(Cookie) {
	s.mu.Unlock()
}

// With runs f with the section held, unlocking on every exit path
// (including a panic unwinding through f).
func (s *Section) With(f func()) {
	c := s.Lock()
	defer s.Unlock(c)
	f()
}

// Locker adapts *Section to sync.Locker, for use with waitq.Park, which
// needs to release and reacquire the section around a suspension the
// way nsync.CV's Wait does with an arbitrary sync.Locker.
func (s *Section) Locker() sync.Locker {
	return &s.mu
}

// Kernel is the single global critical section guarding every object's
// mutable state (spec §5: "no per-object lock exists").
var Kernel Section
