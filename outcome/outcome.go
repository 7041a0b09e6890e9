// Package outcome defines the four wakeup/return codes shared by every
// blocking primitive in the kernel's synchronization layer.
package outcome

// Outcome is returned by every blocking or non-blocking primitive in
// this module, in place of a normal Go error: there is no exception
// mechanism and no global error state (the kernel runs on hardware with
// neither), so control flow is purely by return value.
type Outcome int

const (
	// Success indicates the operation completed: a semaphore was
	// taken/given, or an event was produced/consumed.
	Success Outcome = iota
	// Timeout indicates a non-blocking path found the object empty or
	// full, or a blocking wait's deadline was reached.
	Timeout
	// Stopped indicates the object was reset while the caller was
	// parked on it.
	Stopped
	// Deleted indicates the object was destroyed while the caller was
	// parked on it. The object reference is dangling and must not be
	// used again.
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case Timeout:
		return "TIMEOUT"
	case Stopped:
		return "STOPPED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}
