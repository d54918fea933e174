//go:build linux

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// createWakeFd opens a Linux eventfd counter descriptor; both ends of the
// returned pair are the same fd, matching eventfd's single-descriptor
// design (as opposed to the two-descriptor self-pipe fallback).
func createWakeFd() (readFd, writeFd int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return 0, 0, err
	}
	return fd, fd, nil
}

// writeWake writes the 8-byte counter increment eventfd expects.
func writeWake(fd int) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(fd, buf[:])
	return err
}

// drainWake reads and discards the 8-byte counter value.
func drainWake(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func closeWakeFd(readFd, writeFd int) error {
	return unix.Close(readFd)
}
