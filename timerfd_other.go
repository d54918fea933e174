//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"sync"
	"time"
)

// timerFdEmu emulates a kernel timer descriptor on platforms without
// timerfd, using a goroutine-driven time.Timer that signals a self-pipe.
// The Channel abstraction above it is unaffected: it still just sees a
// readable descriptor.
type timerFdEmu struct {
	readFd, writeFd int
	mu              sync.Mutex
	timer           *time.Timer
}

var timerFdEmus sync.Map // map[int]*timerFdEmu keyed by readFd

func createTimerFd() (int, error) {
	r, w, err := createWakeFd()
	if err != nil {
		return 0, err
	}
	timerFdEmus.Store(r, &timerFdEmu{readFd: r, writeFd: w})
	return r, nil
}

func resetTimerFd(fd int, expiration time.Time) error {
	v, ok := timerFdEmus.Load(fd)
	if !ok {
		return nil
	}
	e := v.(*timerFdEmu)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	d := howMuchFromNow(expiration)
	e.timer = time.AfterFunc(d, func() {
		_ = writeWake(e.writeFd)
	})
	return nil
}

func readTimerFd(fd int) error {
	return drainWake(fd)
}

func closeTimerFd(fd int) error {
	v, ok := timerFdEmus.LoadAndDelete(fd)
	if !ok {
		return nil
	}
	e := v.(*timerFdEmu)
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()
	return closeWakeFd(e.readFd, e.writeFd)
}
