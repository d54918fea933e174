package reactor

import (
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// TestAcceptorFileDescriptorExhaustion: when accept(2) fails with EMFILE,
// the Acceptor must close its reserved idle descriptor, accept-and-drop
// the pending connection so the listening socket stops reporting
// readable, then reopen a fresh idle descriptor.
func TestAcceptorFileDescriptorExhaustion(t *testing.T) {
	loop, stop := startTestLoop(t)
	defer stop()

	var acceptor *Acceptor
	var listenAddr string
	done := make(chan struct{})
	loop.RunInLoop(func() {
		var err error
		acceptor, err = NewAcceptor(loop, nil, "127.0.0.1:0", false)
		if err != nil {
			t.Error(err)
			close(done)
			return
		}
		sa, err := unix.Getsockname(acceptor.listenFd)
		if err != nil {
			t.Error(err)
			close(done)
			return
		}
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			listenAddr = net.JoinHostPort(net.IP(in4.Addr[:]).String(), itoaSimple(in4.Port))
		}
		if err := acceptor.Listen(); err != nil {
			t.Error(err)
		}
		close(done)
	})
	<-done
	if acceptor == nil || listenAddr == "" {
		t.Fatal("acceptor not constructed")
	}

	initialIdleFd := acceptor.idleFd

	// dial one pending connection so the accept-and-drop branch inside
	// handleFileDescriptorExhaustion has something to consume.
	conn, dialErr := net.DialTimeout("tcp", listenAddr, time.Second)
	if dialErr == nil {
		defer conn.Close()
	}
	time.Sleep(20 * time.Millisecond)

	exhaustDone := make(chan struct{})
	loop.RunInLoop(func() {
		acceptor.handleFileDescriptorExhaustion()
		close(exhaustDone)
	})
	<-exhaustDone

	if acceptor.idleFd == initialIdleFd {
		t.Fatal("expected a freshly reopened idle descriptor")
	}
	if acceptor.idleFd < 0 {
		t.Fatal("idle descriptor was not reopened")
	}
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
