//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

func createTimerFd() (int, error) {
	return unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
}

func resetTimerFd(fd int, expiration time.Time) error {
	d := howMuchFromNow(expiration)
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	return unix.TimerfdSettime(fd, 0, &spec, nil)
}

// readTimerFd reads the overrun count; its value is discarded.
func readTimerFd(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func closeTimerFd(fd int) error {
	return unix.Close(fd)
}
