package reactor

import (
	"testing"

	"golang.org/x/sys/unix"
)

// socketPairForTest returns a connected pair of blocking file descriptors
// wrapped as *testFile, suitable for exercising ReadFd/Write without a
// real network listener.
func socketPairForTest(t *testing.T) (*testFile, *testFile, error) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, err
	}
	return &testFile{fd: fds[0]}, &testFile{fd: fds[1]}, nil
}

type testFile struct {
	fd int
}

func (f *testFile) Write(p []byte) (int, error) { return unix.Write(f.fd, p) }

func (f *testFile) Close() error { return unix.Close(f.fd) }

func fdOfTestFile(t *testing.T, f *testFile) int {
	t.Helper()
	return f.fd
}
