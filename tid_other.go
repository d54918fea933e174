//go:build !linux

package reactor

// currentThreadID has no portable OS-thread-id accessor outside Linux, so
// it falls back to the goroutine id, which is still stable for the
// lifetime of a runtime.LockOSThread-pinned Loop goroutine.
func currentThreadID() int64 { return goroutineID() }
