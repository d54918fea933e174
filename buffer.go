package reactor

import "golang.org/x/sys/unix"

const (
	bufferCheapPrepend = 8
	bufferInitialSize  = 1024
	bufferExtraSize    = 65536
)

// Buffer is a growable byte buffer with a cheap-prepend region: a single
// contiguous backing array with a read cursor and a write cursor, so
// repeated small reads do not repeatedly reallocate and length-prefix
// framing can be written in front of an already-filled payload without a
// copy.
type Buffer struct {
	data        []byte
	readerIndex int
	writerIndex int
}

// NewBuffer returns an empty Buffer with the cheap-prepend region reserved.
func NewBuffer() *Buffer {
	b := &Buffer{
		data: make([]byte, bufferCheapPrepend+bufferInitialSize),
	}
	b.readerIndex = bufferCheapPrepend
	b.writerIndex = bufferCheapPrepend
	return b
}

// ReadableBytes returns the number of bytes available to read.
func (b *Buffer) ReadableBytes() int { return b.writerIndex - b.readerIndex }

// WritableBytes returns the number of bytes that can be appended without
// growing the buffer.
func (b *Buffer) WritableBytes() int { return len(b.data) - b.writerIndex }

// PrependableBytes returns the number of bytes currently free in front of
// the readable region, for cheap header prepending.
func (b *Buffer) PrependableBytes() int { return b.readerIndex }

// Peek returns the readable region without consuming it. The returned
// slice aliases the buffer and is invalidated by the next mutating call.
func (b *Buffer) Peek() []byte { return b.data[b.readerIndex:b.writerIndex] }

// Retrieve consumes n bytes from the front of the readable region.
func (b *Buffer) Retrieve(n int) {
	if n <= 0 {
		return
	}
	if n < b.ReadableBytes() {
		b.readerIndex += n
		return
	}
	b.RetrieveAll()
}

// RetrieveAll consumes the entire readable region, resetting both cursors
// to the start of the cheap-prepend boundary.
func (b *Buffer) RetrieveAll() {
	b.readerIndex = bufferCheapPrepend
	b.writerIndex = bufferCheapPrepend
}

// RetrieveAsString consumes n bytes from the front of the readable region
// and returns them as a string.
func (b *Buffer) RetrieveAsString(n int) string {
	if n > b.ReadableBytes() {
		n = b.ReadableBytes()
	}
	s := string(b.data[b.readerIndex : b.readerIndex+n])
	b.Retrieve(n)
	return s
}

// RetrieveAllAsString consumes the entire readable region and returns it
// as a string.
func (b *Buffer) RetrieveAllAsString() string { return b.RetrieveAsString(b.ReadableBytes()) }

// Append appends data to the writable region, growing the buffer if
// needed.
func (b *Buffer) Append(data []byte) {
	b.ensureWritable(len(data))
	n := copy(b.data[b.writerIndex:], data)
	b.writerIndex += n
}

// Prepend writes data immediately before the readable region; the caller
// must ensure PrependableBytes() >= len(data).
func (b *Buffer) Prepend(data []byte) {
	start := b.readerIndex - len(data)
	copy(b.data[start:b.readerIndex], data)
	b.readerIndex = start
}

// Shrink reduces the backing array to just enough to hold the current
// readable bytes plus reserve bytes of spare writable capacity,
// relinquishing any excess capacity built up from prior growth spikes.
func (b *Buffer) Shrink(reserve int) {
	readable := b.ReadableBytes()
	fresh := &Buffer{data: make([]byte, bufferCheapPrepend+readable+reserve)}
	fresh.readerIndex = bufferCheapPrepend
	fresh.writerIndex = bufferCheapPrepend + readable
	copy(fresh.data[fresh.readerIndex:fresh.writerIndex], b.Peek())
	*b = *fresh
}

func (b *Buffer) ensureWritable(n int) {
	if b.WritableBytes() >= n {
		return
	}
	b.makeSpace(n)
}

// makeSpace grows or compacts the backing array to fit n more writable
// bytes, reusing the freed prepend+read region in place when it is large
// enough rather than reallocating.
func (b *Buffer) makeSpace(n int) {
	if b.WritableBytes()+b.PrependableBytes()-bufferCheapPrepend >= n {
		readable := b.ReadableBytes()
		copy(b.data[bufferCheapPrepend:], b.data[b.readerIndex:b.writerIndex])
		b.readerIndex = bufferCheapPrepend
		b.writerIndex = bufferCheapPrepend + readable
		return
	}
	newCap := len(b.data) + n
	grown := make([]byte, newCap)
	readable := b.ReadableBytes()
	copy(grown[bufferCheapPrepend:], b.data[b.readerIndex:b.writerIndex])
	b.data = grown
	b.readerIndex = bufferCheapPrepend
	b.writerIndex = bufferCheapPrepend + readable
}

// ReadFd reads from fd directly into the buffer using a two-iovec scatter
// read: the first iovec targets the buffer's existing writable tail, the
// second targets a large stack-allocated overflow region, so a single
// syscall can drain a socket buffer holding more data than the Buffer
// currently has room for without an up-front grow.
func (b *Buffer) ReadFd(fd int) (int, error) {
	var extra [bufferExtraSize]byte
	writable := b.WritableBytes()

	iovs := make([][]byte, 0, 2)
	iovs = append(iovs, b.data[b.writerIndex:])
	if writable < len(extra) {
		iovs = append(iovs, extra[:])
	}

	n, err := unix.Readv(fd, iovs)
	if n <= 0 {
		return n, err
	}

	if n <= writable {
		b.writerIndex += n
	} else {
		b.writerIndex = len(b.data)
		b.Append(extra[:n-writable])
	}
	return n, err
}
