package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// NewConnectionCallback hands a freshly accepted connection's descriptor
// and peer address to the Server that owns the Acceptor.
type NewConnectionCallback func(connFd int, peerAddr string)

// acceptorBacklog is the listen(2) backlog depth.
const acceptorBacklog = unix.SOMAXCONN

// Acceptor owns the listening socket and accepts new connections on its
// Loop's goroutine. It reserves one idle descriptor up front so that, on
// hitting the process file-descriptor limit, it can still accept and
// immediately drop a connection instead of spinning hot in a poll/accept
// loop that keeps reporting the listening socket readable.
type Acceptor struct {
	loop      *Loop
	logger    *Logger
	listenFd  int
	channel   *Channel
	idleFd    int
	listening bool
	newConnCb NewConnectionCallback
}

// NewAcceptor creates a listening socket bound to address and wraps it in
// a Channel owned by loop.
func NewAcceptor(loop *Loop, logger *Logger, address string, reusePort bool) (*Acceptor, error) {
	if logger == nil {
		logger = discardLogger
	}
	sa, family, err := parseTCPAddr(address)
	if err != nil {
		return nil, err
	}
	fd, err := newListenFd(family, sa, reusePort)
	if err != nil {
		return nil, err
	}

	idleFd, err := openIdleFd()
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	a := &Acceptor{
		loop:     loop,
		logger:   logger,
		listenFd: fd,
		idleFd:   idleFd,
		channel:  loop.NewChannel(fd),
	}
	a.channel.SetReadCallback(a.handleRead)
	return a, nil
}

// SetNewConnectionCallback installs the callback invoked for each accepted
// connection.
func (a *Acceptor) SetNewConnectionCallback(cb NewConnectionCallback) { a.newConnCb = cb }

// Listening reports whether Listen has been called.
func (a *Acceptor) Listening() bool { return a.listening }

// Listen binds the socket into the listening state and enables read
// interest on the Loop.
func (a *Acceptor) Listen() error {
	a.loop.assertInLoopGoroutine(`Acceptor.Listen`)
	if err := listenSocket(a.listenFd, acceptorBacklog); err != nil {
		return err
	}
	a.listening = true
	a.channel.EnableReading()
	return nil
}

// handleRead accepts a single pending connection per readiness event:
// rather than draining the full backlog in a loop, the Acceptor takes
// exactly one connection and lets the next readiness event (re-armed
// automatically, since listenFd remains level-triggered) pick up any
// remainder. This bounds one Channel's worst-case dispatch latency under
// an accept storm.
func (a *Acceptor) handleRead(time.Time) {
	connFd, sa, err := acceptConn(a.listenFd)
	if err != nil {
		switch err {
		case unix.EAGAIN:
			return
		case unix.EMFILE, unix.ENFILE:
			a.handleFileDescriptorExhaustion()
			return
		default:
			a.logger.Err().Err(err).Log(`reactor: accept failed`)
			return
		}
	}

	if a.newConnCb != nil {
		a.newConnCb(connFd, sockaddrString(sa))
	} else {
		_ = unix.Close(connFd)
	}
}

// handleFileDescriptorExhaustion releases the Acceptor's reserved idle
// descriptor, accepts and immediately drops the waiting connection (so
// the listening socket stops reporting readable), then reopens the idle
// descriptor for the next time the process runs out of file descriptors.
func (a *Acceptor) handleFileDescriptorExhaustion() {
	_ = unix.Close(a.idleFd)
	connFd, _, err := unix.Accept(a.listenFd)
	if err == nil {
		_ = unix.Close(connFd)
	}
	a.logger.Warning().Log(`reactor: file descriptor limit reached, dropping connection`)
	if fd, err := openIdleFd(); err == nil {
		a.idleFd = fd
	} else {
		a.logger.Err().Err(err).Log(`reactor: failed to reopen idle descriptor`)
	}
}

// Close stops accepting and releases the listening and idle descriptors.
func (a *Acceptor) Close() error {
	a.channel.DisableAll()
	a.channel.Remove()
	err := unix.Close(a.listenFd)
	if e := unix.Close(a.idleFd); e != nil && err == nil {
		err = e
	}
	return err
}
