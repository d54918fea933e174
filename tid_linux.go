//go:build linux

package reactor

import "golang.org/x/sys/unix"

// currentThreadID returns the Linux OS thread id of the calling goroutine.
// Callers wanting a stable value across the lifetime of a Loop must pin
// the goroutine with runtime.LockOSThread first, as Loop.Run does.
func currentThreadID() int64 { return int64(unix.Gettid()) }
