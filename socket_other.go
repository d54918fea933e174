//go:build !linux

package reactor

import "golang.org/x/sys/unix"

// newListenFd creates a listening socket bound to sa. Darwin and the BSDs
// reject SOCK_NONBLOCK/SOCK_CLOEXEC as socket(2) type bits, so non-blocking
// and close-on-exec are applied afterward, the same way wakeup_other.go
// configures its self-pipe descriptors.
func newListenFd(family int, sa unix.Sockaddr, reusePort bool) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			_ = unix.Close(fd)
			return -1, err
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// acceptConn accepts one pending connection off listenFd, then applies
// non-blocking and close-on-exec manually since this platform's
// golang.org/x/sys/unix has no accept4(2) binding.
func acceptConn(listenFd int) (int, unix.Sockaddr, error) {
	connFd, sa, err := unix.Accept(listenFd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(connFd)
	if err := unix.SetNonblock(connFd, true); err != nil {
		_ = unix.Close(connFd)
		return -1, nil, err
	}
	return connFd, sa, nil
}
