package reactor

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// ConnState is the Connection's lifecycle state: Connecting ->
// Connected -> (Disconnecting ->)? Disconnected.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Connection is a single established TCP connection's state machine: one
// Channel, one input Buffer, one output Buffer, all owned by exactly one
// Loop for the connection's lifetime.
type Connection struct {
	loop   *Loop
	logger *Logger

	name string
	fd   int

	localAddr string
	peerAddr  string

	channel *Channel

	// state is atomic because Send, Shutdown, and ForceClose inspect it
	// from arbitrary goroutines; all transitions still happen on the
	// owning loop.
	state atomic.Int32

	inputBuffer  *Buffer
	outputBuffer *Buffer

	highWaterMark int

	connectionCallback    ConnectionCallback
	messageCallback       MessageCallback
	writeCompleteCallback WriteCompleteCallback
	highWaterMarkCallback HighWaterMarkCallback
	closeCallback         CloseCallback

	userContext any
}

// newConnection constructs a Connection for an already-accepted,
// non-blocking fd. It starts in StateConnecting; connectEstablished must
// be called on loop's goroutine before it handles any I/O.
func newConnection(loop *Loop, logger *Logger, name string, fd int, localAddr, peerAddr string) *Connection {
	if logger == nil {
		logger = discardLogger
	}
	c := &Connection{
		loop:          loop,
		logger:        logger,
		name:          name,
		fd:            fd,
		localAddr:     localAddr,
		peerAddr:      peerAddr,
		inputBuffer:   NewBuffer(),
		outputBuffer:  NewBuffer(),
		highWaterMark: 64 * 1024 * 1024,
	}
	c.setState(StateConnecting)
	c.channel = loop.NewChannel(fd)
	c.channel.SetReadCallback(c.handleRead)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetCloseCallback(c.handleClose)
	c.channel.SetErrorCallback(c.handleError)
	return c
}

// Name returns the connection's unique identifier, of the form
// "<server-name>-<ip:port>#<id>".
func (c *Connection) Name() string { return c.name }

// Fd returns the connection's underlying socket descriptor.
func (c *Connection) Fd() int { return c.fd }

// LocalAddr returns the local endpoint's "ip:port".
func (c *Connection) LocalAddr() string { return c.localAddr }

// PeerAddr returns the remote endpoint's "ip:port".
func (c *Connection) PeerAddr() string { return c.peerAddr }

// Loop returns the Loop this Connection is bound to.
func (c *Connection) Loop() *Loop { return c.loop }

// State returns the connection's current lifecycle state.
func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

func (c *Connection) setState(s ConnState) { c.state.Store(int32(s)) }

// Connected reports whether the connection is in StateConnected.
func (c *Connection) Connected() bool { return c.State() == StateConnected }

// Disconnected reports whether the connection is in StateDisconnected.
func (c *Connection) Disconnected() bool { return c.State() == StateDisconnected }

// SetContext attaches arbitrary user state to the connection.
func (c *Connection) SetContext(v any) { c.userContext = v }

// Context returns the user state previously attached with SetContext.
func (c *Connection) Context() any { return c.userContext }

func (c *Connection) setConnectionCallback(cb ConnectionCallback)       { c.connectionCallback = cb }
func (c *Connection) setMessageCallback(cb MessageCallback)             { c.messageCallback = cb }
func (c *Connection) setWriteCompleteCallback(cb WriteCompleteCallback) { c.writeCompleteCallback = cb }
func (c *Connection) setHighWaterMarkCallback(cb HighWaterMarkCallback, n int) {
	c.highWaterMarkCallback = cb
	c.highWaterMark = n
}
func (c *Connection) setCloseCallback(cb CloseCallback) { c.closeCallback = cb }

// connectEstablished transitions Connecting -> Connected, ties the
// Channel to this Connection's weak handle, enables reading, and invokes
// the user connection callback. Called exactly once, on the owning Loop.
func (c *Connection) connectEstablished() {
	c.loop.assertInLoopGoroutine(`Connection.connectEstablished`)
	if c.State() != StateConnecting {
		c.logger.Fatal().Str(`conn`, c.name).Log(`reactor: connectEstablished called outside Connecting state`)
	}
	c.setState(StateConnected)
	c.channel.Tie(c)
	c.channel.EnableReading()
	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
}

// connectDestroyed transitions a Connected connection to Disconnected,
// disabling all interest and invoking the user connection callback, then
// removes the Channel from the loop and closes the descriptor. The user
// callback is skipped when the state is already Disconnected, but the
// Channel removal and the descriptor close run on every call, so a second
// call is not a no-op; the Server calls it once per Connection.
func (c *Connection) connectDestroyed() {
	c.loop.assertInLoopGoroutine(`Connection.connectDestroyed`)
	if c.State() == StateConnected {
		c.setState(StateDisconnected)
		c.channel.DisableAll()
		if c.connectionCallback != nil {
			c.connectionCallback(c)
		}
	}
	c.channel.Remove()
	_ = unix.Close(c.fd)
}

func (c *Connection) handleRead(receiveTime time.Time) {
	c.loop.assertInLoopGoroutine(`Connection.handleRead`)
	n, err := c.inputBuffer.ReadFd(c.fd)
	switch {
	case n > 0:
		if c.messageCallback != nil {
			c.messageCallback(c, c.inputBuffer, receiveTime)
		}
	case n == 0:
		c.handleClose()
	default:
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return
		}
		c.logger.Err().Str(`conn`, c.name).Err(err).Log(`reactor: connection read error`)
		c.handleError()
	}
}

func (c *Connection) handleWrite() {
	c.loop.assertInLoopGoroutine(`Connection.handleWrite`)
	if !c.channel.IsWriting() {
		return
	}
	n, err := unix.Write(c.fd, c.outputBuffer.Peek())
	if n > 0 {
		c.outputBuffer.Retrieve(n)
		if c.outputBuffer.ReadableBytes() == 0 {
			c.channel.DisableWriting()
			if c.writeCompleteCallback != nil {
				c.loop.QueueInLoop(func() { c.writeCompleteCallback(c) })
			}
			if c.State() == StateDisconnecting {
				c.shutdownInLoop()
			}
		}
		return
	}
	if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK && err != unix.EINTR {
		c.logger.Err().Str(`conn`, c.name).Err(err).Log(`reactor: connection write error`)
	}
}

func (c *Connection) handleClose() {
	c.loop.assertInLoopGoroutine(`Connection.handleClose`)
	if c.State() == StateDisconnected {
		return
	}
	c.setState(StateDisconnected)
	c.channel.DisableAll()
	// the user observes the destroyed transition here; connectDestroyed
	// skips its own notification once the state is already Disconnected.
	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
	if c.closeCallback != nil {
		c.closeCallback(c)
	}
}

func (c *Connection) handleError() {
	var errno int
	if v, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR); err == nil {
		errno = v
	}
	c.logger.Err().Str(`conn`, c.name).Int(`errno`, errno).Log(`reactor: connection socket error`)
}

// Send queues data for transmission. If called off the owning Loop, it is
// marshalled there first. Data handed to Send after the connection has
// reached StateDisconnected is discarded, reported by ErrConnectionClosed.
func (c *Connection) Send(data []byte) error {
	if c.Disconnected() {
		return ErrConnectionClosed
	}
	if c.loop.IsInLoopGoroutine() {
		c.sendInLoop(data)
		return nil
	}
	buf := append([]byte(nil), data...)
	c.loop.QueueInLoop(func() { c.sendInLoop(buf) })
	return nil
}

func (c *Connection) sendInLoop(data []byte) {
	if c.State() == StateDisconnected {
		return
	}

	var (
		written  int
		writeErr error
	)
	if !c.channel.IsWriting() && c.outputBuffer.ReadableBytes() == 0 {
		n, err := unix.Write(c.fd, data)
		if n >= 0 {
			written = n
		}
		writeErr = err
		if written == len(data) {
			if c.writeCompleteCallback != nil {
				c.loop.QueueInLoop(func() { c.writeCompleteCallback(c) })
			}
			return
		}
		if writeErr != nil && writeErr != unix.EAGAIN && writeErr != unix.EWOULDBLOCK && writeErr != unix.EINTR {
			c.logger.Err().Str(`conn`, c.name).Err(writeErr).Log(`reactor: connection send error`)
			return
		}
	}

	remaining := data[written:]
	if len(remaining) == 0 {
		return
	}
	oldLen := c.outputBuffer.ReadableBytes()
	// fire only on the upward crossing of the mark, not on every append
	// while above it
	if queued := oldLen + len(remaining); queued >= c.highWaterMark && oldLen < c.highWaterMark && c.highWaterMarkCallback != nil {
		c.loop.QueueInLoop(func() { c.highWaterMarkCallback(c, queued) })
	}
	c.outputBuffer.Append(remaining)
	if !c.channel.IsWriting() {
		c.channel.EnableWriting()
	}
}

// Shutdown is thread-safe. It moves a Connected connection to
// Disconnecting immediately and half-closes the write direction once the
// output buffer has drained. Issuing the half-close does not change the
// state; the connection becomes Disconnected when the peer closes its side
// and handleClose runs.
func (c *Connection) Shutdown() {
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnecting)) {
		return
	}
	c.loop.RunInLoop(c.shutdownInLoop)
}

func (c *Connection) shutdownInLoop() {
	if c.channel.IsWriting() {
		return
	}
	if err := shutdownWrite(c.fd); err != nil {
		c.logger.Err().Str(`conn`, c.name).Err(err).Log(`reactor: shutdown failed`)
	}
}

// ForceClose posts a close to the owning Loop regardless of buffered
// output.
func (c *Connection) ForceClose() {
	if s := c.State(); s == StateConnected || s == StateDisconnecting {
		c.setState(StateDisconnecting)
		c.loop.QueueInLoop(c.forceCloseInLoop)
	}
}

func (c *Connection) forceCloseInLoop() {
	if s := c.State(); s == StateConnected || s == StateDisconnecting {
		c.handleClose()
	}
}

// ForceCloseWithDelay schedules a one-shot timer that force-closes the
// connection only if it is still connected when the timer fires.
func (c *Connection) ForceCloseWithDelay(d time.Duration) {
	c.loop.RunAfter(d, func() {
		if s := c.State(); s == StateConnected || s == StateDisconnecting {
			c.ForceClose()
		}
	})
}

// SetTCPNoDelay toggles the Nagle algorithm on the connection's socket.
func (c *Connection) SetTCPNoDelay(on bool) error {
	return setTCPNoDelay(c.fd, on)
}

// StartRead enables read interest, marshalled to the owning Loop.
func (c *Connection) StartRead() {
	c.loop.RunInLoop(func() {
		if !c.channel.IsReading() {
			c.channel.EnableReading()
		}
	})
}

// StopRead disables read interest, marshalled to the owning Loop.
func (c *Connection) StopRead() {
	c.loop.RunInLoop(func() {
		if c.channel.IsReading() {
			c.channel.DisableReading()
		}
	})
}
