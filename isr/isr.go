// Package isr tracks whether the kernel is currently executing in
// interrupt-handler context, the Go stand-in for the C original's
// port_isr_context(). Because the kernel is single-core and not
// re-entrant across CPUs (spec §5), a single shared depth counter
// correctly answers "are we in a handler right now" regardless of which
// goroutine happens to be standing in for the current task or ISR: on
// real hardware, a task never runs concurrently with an ISR either.
package isr

import "sync/atomic"

var depth int32

// Enter marks the start of a simulated interrupt handler. The returned
// function must be called (typically via defer) to mark its end.
func Enter() func() {
	atomic.AddInt32(&depth, 1)
	return func() { atomic.AddInt32(&depth, -1) }
}

// InHandler reports whether the kernel is currently executing inside a
// simulated ISR, as bracketed by Enter.
func InHandler() bool {
	return atomic.LoadInt32(&depth) != 0
}

// AssertThread panics if called while InHandler is true. Blocking entry
// points (spec §4.5: "blocking entry points must assert thread context")
// call this before parking; contract violations trip this debug
// assertion rather than silently blocking a handler.
func AssertThread(who string) {
	if InHandler() {
		panic(who + ": blocking call made from ISR context")
	}
}

// Assert panics with msg if ok is false. Used at the handful of
// contract-violation checks the original kernel expresses as assert()
// (nil pointers, zero limits, uninitialised buffers) — see spec §7.
func Assert(ok bool, msg string) {
	if !ok {
		panic(msg)
	}
}
