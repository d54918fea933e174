//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux Poller backend: an epoll instance plus a
// kernel-event buffer that doubles when a Poll fills it, and tri-state
// channel bookkeeping.
type epollPoller struct {
	epfd     int
	channels map[int]*Channel
	events   []unix.EpollEvent
	logger   *Logger
}

func newPoller(logger *Logger) (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:     epfd,
		channels: make(map[int]*Channel),
		events:   make([]unix.EpollEvent, initialPollerEventCap),
		logger:   logger,
	}, nil
}

func (p *epollPoller) Poll(timeout time.Duration, active *[]*Channel) (time.Time, error) {
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, p.events, ms)
	now := time.Now()
	if err != nil {
		if err == unix.EINTR {
			return now, nil
		}
		return now, err
	}
	for i := 0; i < n; i++ {
		ev := p.events[i]
		ch, ok := p.channels[int(ev.Fd)]
		if !ok {
			continue
		}
		ch.setRevents(Event(ev.Events))
		*active = append(*active, ch)
	}
	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, len(p.events)*2)
	}
	return now, nil
}

func (p *epollPoller) UpdateChannel(ch *Channel) {
	fd := ch.fd
	switch ch.status {
	case statusNew, statusDeleted:
		if ch.events.IsNone() {
			return
		}
		p.channels[fd] = ch
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: uint32(ch.events), Fd: int32(fd)}); err != nil {
			p.logger.Fatal().Err(err).Int(`fd`, fd).Log(`epoll_ctl add failed`)
		}
		ch.status = statusAdded
	case statusAdded:
		if ch.events.IsNone() {
			if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
				p.logger.Err().Err(err).Int(`fd`, fd).Log(`epoll_ctl del failed`)
			}
			ch.status = statusDeleted
			return
		}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: uint32(ch.events), Fd: int32(fd)}); err != nil {
			p.logger.Fatal().Err(err).Int(`fd`, fd).Log(`epoll_ctl mod failed`)
		}
	}
}

func (p *epollPoller) RemoveChannel(ch *Channel) {
	fd := ch.fd
	if ch.status == statusAdded {
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			p.logger.Err().Err(err).Int(`fd`, fd).Log(`epoll_ctl del on remove failed`)
		}
	}
	delete(p.channels, fd)
	ch.status = statusNew
}

func (p *epollPoller) HasChannel(ch *Channel) bool {
	c, ok := p.channels[ch.fd]
	return ok && c == ch
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
