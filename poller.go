package reactor

import "time"

// pollerStatus is the three-valued tag tracking a Channel's relationship
// to the kernel readiness notifier and the Poller's descriptor map:
// new (in neither), added (in both), deleted (in the map only).
type pollerStatus int8

const (
	statusNew pollerStatus = iota
	statusAdded
	statusDeleted
)

// Poller waits on a set of descriptors and reports those that became
// ready. Exactly one Poller backs one Loop; all methods must be called
// from the owning Loop's goroutine. Concrete implementations are epoll
// (Linux, poller_linux.go) and kqueue (Darwin/BSD, poller_other.go).
type Poller interface {
	// Poll blocks up to timeout waiting for readiness, appends every
	// ready Channel (with its reported mask already set) to active, and
	// returns a timestamp captured immediately after waking.
	Poll(timeout time.Duration, active *[]*Channel) (time.Time, error)

	// UpdateChannel synchronizes the kernel notifier with ch.Events().
	UpdateChannel(ch *Channel)

	// RemoveChannel requires ch.Events().IsNone(); it unregisters ch if
	// still registered and forgets it entirely.
	RemoveChannel(ch *Channel)

	// HasChannel reports whether ch is currently tracked by this Poller.
	HasChannel(ch *Channel) bool

	// Close releases the notifier descriptor.
	Close() error
}

// pollTimeout bounds how long each loop iteration blocks in the kernel
// wait; a wakeup write interrupts it early.
const pollTimeout = 10 * time.Second

// initialPollerEventCap is the starting size of a Poller's internal
// kernel-event buffer; it doubles whenever a Poll call fills it.
const initialPollerEventCap = 16
