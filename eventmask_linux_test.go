//go:build linux

package reactor

import (
	"testing"

	"golang.org/x/sys/unix"
)

// The Event bit values must match the kernel's epoll constants exactly,
// since the epoll poller passes them through untranslated.
func TestEventBitsMatchEpollConstants(t *testing.T) {
	pairs := map[Event]uint32{
		EventReadable:   unix.EPOLLIN,
		EventPriority:   unix.EPOLLPRI,
		EventWritable:   unix.EPOLLOUT,
		EventError:      unix.EPOLLERR,
		EventHangup:     unix.EPOLLHUP,
		EventPeerHangup: unix.EPOLLRDHUP,
	}
	for ev, want := range pairs {
		if uint32(ev) != want {
			t.Errorf("event bit 0x%x does not match epoll constant 0x%x", uint32(ev), want)
		}
	}
}
