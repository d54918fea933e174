//go:build linux

package reactor

import "golang.org/x/sys/unix"

// newListenFd creates a non-blocking, close-on-exec listening socket bound
// to sa, using the single SOCK_NONBLOCK|SOCK_CLOEXEC socket(2) call Linux
// provides for this.
func newListenFd(family int, sa unix.Sockaddr, reusePort bool) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
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

// acceptConn accepts one pending connection off listenFd as non-blocking,
// close-on-exec, in a single accept4(2) syscall.
func acceptConn(listenFd int) (int, unix.Sockaddr, error) {
	connFd, sa, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, err
	}
	return connFd, sa, nil
}
