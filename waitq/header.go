package waitq

// Header is the common prefix embedded in every blocking object (spec
// §3): a waiter queue plus a marker for whether the object owns
// dynamically-allocated backing storage. Go's garbage collector makes
// the original's "resource_handle" pointer-to-self trick unnecessary for
// memory safety, but the flag itself still matters: Destroy is only
// valid, and only frees anything conceptually, for a dynamically
// created object (spec §3 "Lifecycle").
type Header struct {
	Queue   Queue
	Dynamic bool
}

// Init prepares h for use, recording whether the owning object was
// dynamically allocated (created via a New*Dynamic constructor) as
// opposed to being a statically/stack-embedded value.
func (h *Header) Init(dynamic bool) {
	h.Queue.ensureInit()
	h.Dynamic = dynamic
}
