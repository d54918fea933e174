//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin Poller backend. Unlike epoll, kqueue has
// no single combined readable/writable filter per descriptor, so interest
// changes are translated into independent EVFILT_READ/EVFILT_WRITE
// add/delete kevents; the translation happens here rather than in the
// hot dispatch path, which stays in terms of the epoll-shaped Event bits.
type kqueuePoller struct {
	kq       int
	channels map[int]*Channel
	events   []unix.Kevent_t
	logger   *Logger
}

func newPoller(logger *Logger) (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{
		kq:       kq,
		channels: make(map[int]*Channel),
		events:   make([]unix.Kevent_t, initialPollerEventCap),
		logger:   logger,
	}, nil
}

func (p *kqueuePoller) Poll(timeout time.Duration, active *[]*Channel) (time.Time, error) {
	ts := unix.NsecToTimespec(int64(timeout))
	n, err := unix.Kevent(p.kq, nil, p.events, &ts)
	now := time.Now()
	if err != nil {
		if err == unix.EINTR {
			return now, nil
		}
		return now, err
	}

	reported := make(map[int]Event, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Ident)
		var mask Event
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask = EventReadable
		case unix.EVFILT_WRITE:
			mask = EventWritable
		}
		if ev.Flags&unix.EV_EOF != 0 {
			mask |= EventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			mask |= EventError
		}
		reported[fd] |= mask
	}
	for fd, mask := range reported {
		ch, ok := p.channels[fd]
		if !ok {
			continue
		}
		ch.setRevents(mask)
		*active = append(*active, ch)
	}
	if n == len(p.events) {
		p.events = make([]unix.Kevent_t, len(p.events)*2)
	}
	return now, nil
}

func (p *kqueuePoller) UpdateChannel(ch *Channel) {
	fd := ch.fd
	switch ch.status {
	case statusNew, statusDeleted:
		if ch.events.IsNone() {
			return
		}
		p.channels[fd] = ch
		p.applyFilters(ch, noneEvent, ch.events)
		ch.status = statusAdded
	case statusAdded:
		if ch.events.IsNone() {
			p.applyFilters(ch, ch.events, noneEvent)
			ch.status = statusDeleted
			return
		}
		p.applyFilters(ch, ^ch.events, ch.events)
	}
}

// applyFilters deletes filters present in prev but absent from next, and
// adds filters present in next but absent from prev.
func (p *kqueuePoller) applyFilters(ch *Channel, prev, next Event) {
	p.setFilter(ch, unix.EVFILT_READ, prev.Has(readEvents), next.Has(readEvents))
	p.setFilter(ch, unix.EVFILT_WRITE, prev.Has(writeEvents), next.Has(writeEvents))
}

func (p *kqueuePoller) setFilter(ch *Channel, filter int16, was, want bool) {
	if was == want {
		return
	}
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !want {
		flags = unix.EV_DELETE
	}
	kev := unix.Kevent_t{
		Ident:  uint64(ch.fd),
		Filter: filter,
		Flags:  flags,
	}
	if _, err := unix.Kevent(p.kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		if want {
			p.logger.Fatal().Err(err).Int(`fd`, ch.fd).Log(`kevent add failed`)
		} else {
			p.logger.Err().Err(err).Int(`fd`, ch.fd).Log(`kevent delete failed`)
		}
	}
}

func (p *kqueuePoller) RemoveChannel(ch *Channel) {
	if ch.status == statusAdded {
		p.applyFilters(ch, ch.events, noneEvent)
	}
	delete(p.channels, ch.fd)
	ch.status = statusNew
}

func (p *kqueuePoller) HasChannel(ch *Channel) bool {
	c, ok := p.channels[ch.fd]
	return ok && c == ch
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
