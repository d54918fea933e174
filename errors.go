package reactor

import "errors"

// Sentinel errors for the reactor core's failure taxonomy. Programmer
// errors and kernel setup errors are reported through Logger.Fatal (which
// exits the process) rather than returned; these values cover the
// remaining, recoverable cases callers are expected to check.
var (
	// ErrLoopAlreadyRunning is returned by Loop.Run when called twice
	// concurrently on the same Loop.
	ErrLoopAlreadyRunning = errors.New("reactor: loop already running")

	// ErrWrongThread is attached to the fatal log event emitted when an
	// owning-thread precondition is violated.
	ErrWrongThread = errors.New("reactor: called from outside the owning loop goroutine")

	// ErrServerAlreadyStarted is returned by Server.Start on the second
	// and subsequent calls.
	ErrServerAlreadyStarted = errors.New("reactor: server already started")

	// ErrConnectionClosed is returned by Connection.Send once the
	// connection has reached the Disconnected state.
	ErrConnectionClosed = errors.New("reactor: connection closed")

	// ErrChannelInterestNotEmpty is attached to the fatal log event
	// emitted when a Channel is removed while its interest mask is still
	// non-empty.
	ErrChannelInterestNotEmpty = errors.New("reactor: channel removed with non-empty interest")
)
