package reactor

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's runtime id by parsing the
// header line of runtime.Stack's output. The Go runtime does not expose
// goroutine identity directly; this trick is the same one used throughout
// the networking ecosystem (gnet, evio, and others) to implement the loop
// goroutine confinement assertions a reactor core needs.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
