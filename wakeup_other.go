//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import "syscall"

// createWakeFd opens a self-pipe, the fallback wakeup primitive described
// in the design notes for kernels without a counter descriptor: any
// readable byte on the read end is sufficient to break the Poller out of
// its blocking wait, using a one-byte convention instead of eventfd's
// 8-byte counter.
func createWakeFd() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

// writeWake writes the one-byte wake convention.
func writeWake(fd int) error {
	_, err := syscall.Write(fd, []byte{1})
	return err
}

// drainWake empties the pipe of all pending wake bytes.
func drainWake(fd int) error {
	var buf [64]byte
	for {
		n, err := syscall.Read(fd, buf[:])
		if err != nil {
			if err == syscall.EAGAIN {
				return nil
			}
			return err
		}
		if n < len(buf) {
			return nil
		}
	}
}

func closeWakeFd(readFd, writeFd int) error {
	_ = syscall.Close(writeFd)
	return syscall.Close(readFd)
}
