package reactor

import (
	"runtime"
	"time"
	"weak"
)

// Channel binds one descriptor's interest mask to the read/write/close/
// error callbacks a Loop dispatches on readiness. A Channel belongs to
// exactly one Loop for its lifetime and mediates every interaction between
// that Loop and its Poller.
type Channel struct {
	loop *Loop
	fd   int

	events  Event
	revents Event

	status pollerStatus

	readCallback  func(receiveTime time.Time)
	writeCallback func()
	closeCallback func()
	errorCallback func()

	tie  weak.Pointer[Connection]
	tied bool

	handling bool

	// index is scratch space owned by the active Poller implementation
	// (e.g. a slot in the kernel event array); the Channel itself never
	// interprets it.
	index int
}

func newChannel(loop *Loop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, status: statusNew, index: -1}
}

// Fd returns the descriptor this Channel handles.
func (c *Channel) Fd() int { return c.fd }

// Loop returns the owning Loop.
func (c *Channel) Loop() *Loop { return c.loop }

// SetReadCallback installs the callback invoked when the descriptor
// becomes readable (or reports priority / peer-hangup data).
func (c *Channel) SetReadCallback(cb func(receiveTime time.Time)) { c.readCallback = cb }

// SetWriteCallback installs the callback invoked when the descriptor
// becomes writable.
func (c *Channel) SetWriteCallback(cb func()) { c.writeCallback = cb }

// SetCloseCallback installs the callback invoked on hangup-without-readable.
func (c *Channel) SetCloseCallback(cb func()) { c.closeCallback = cb }

// SetErrorCallback installs the callback invoked on a reported error.
func (c *Channel) SetErrorCallback(cb func()) { c.errorCallback = cb }

// Tie stores a weak handle to a shared owner. Before dispatching a tied
// Channel's callbacks, the Loop attempts to promote the weak handle to a
// strong one for the duration of the call; if promotion fails the owner
// has already been destroyed and the event is silently dropped.
func (c *Channel) Tie(owner *Connection) {
	c.tie = weak.Make(owner)
	c.tied = true
}

// EnableReading adds Readable|Priority to the interest mask.
func (c *Channel) EnableReading() {
	c.events |= readEvents
	c.update()
}

// DisableReading removes Readable|Priority from the interest mask.
func (c *Channel) DisableReading() {
	c.events &^= readEvents
	c.update()
}

// EnableWriting adds Writable to the interest mask.
func (c *Channel) EnableWriting() {
	c.events |= writeEvents
	c.update()
}

// DisableWriting removes Writable from the interest mask.
func (c *Channel) DisableWriting() {
	c.events &^= writeEvents
	c.update()
}

// DisableAll clears the interest mask entirely.
func (c *Channel) DisableAll() {
	c.events = noneEvent
	c.update()
}

// IsWriting reports whether Writable is currently in the interest mask.
func (c *Channel) IsWriting() bool { return c.events.Has(writeEvents) }

// IsReading reports whether Readable is currently in the interest mask.
func (c *Channel) IsReading() bool { return c.events.Has(readEvents) }

// IsNoneEvent reports whether the interest mask is empty.
func (c *Channel) IsNoneEvent() bool { return c.events.IsNone() }

// Events returns the current interest mask.
func (c *Channel) Events() Event { return c.events }

// setRevents stores the mask the Poller reported for this readiness event.
func (c *Channel) setRevents(ev Event) { c.revents = ev }

func (c *Channel) update() {
	c.loop.updateChannel(c)
}

// Remove requests removal of this Channel from its owning Loop. The
// interest mask must already be empty.
func (c *Channel) Remove() {
	c.loop.removeChannel(c)
}

// HandleEvent dispatches callbacks for the mask set by setRevents, in
// priority order: hangup-without-readable (close), error, read, write.
// The handling flag is set only once the tie check has passed, and is
// cleared on every exit path after that.
func (c *Channel) HandleEvent(receiveTime time.Time) {
	if c.tied {
		owner := c.tie.Value()
		if owner == nil {
			// owner already gone; drop the event
			return
		}
		defer runtime.KeepAlive(owner)
	}
	c.handling = true
	defer func() { c.handling = false }()

	if c.revents.Has(EventHangup) && !c.revents.Has(EventReadable) {
		if c.closeCallback != nil {
			c.closeCallback()
		}
		return
	}
	if c.revents.Has(EventError) {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if c.revents.Any(EventReadable | EventPriority | EventPeerHangup) {
		if c.readCallback != nil {
			c.readCallback(receiveTime)
		}
	}
	if c.revents.Has(EventWritable) {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
