package reactor

import (
	"bytes"
	"testing"
)

func TestBufferAppendRetrieve(t *testing.T) {
	b := NewBuffer()
	if b.ReadableBytes() != 0 {
		t.Fatalf("expected empty buffer, got %d readable", b.ReadableBytes())
	}
	if b.PrependableBytes() != bufferCheapPrepend {
		t.Fatalf("expected %d prependable bytes, got %d", bufferCheapPrepend, b.PrependableBytes())
	}

	b.Append([]byte("hello"))
	if got := b.ReadableBytes(); got != 5 {
		t.Fatalf("expected 5 readable bytes, got %d", got)
	}
	if !bytes.Equal(b.Peek(), []byte("hello")) {
		t.Fatalf("unexpected peek content: %q", b.Peek())
	}

	s := b.RetrieveAsString(3)
	if s != "hel" {
		t.Fatalf("expected \"hel\", got %q", s)
	}
	if got := b.ReadableBytes(); got != 2 {
		t.Fatalf("expected 2 readable bytes remaining, got %d", got)
	}
	if rest := b.RetrieveAllAsString(); rest != "lo" {
		t.Fatalf("expected \"lo\", got %q", rest)
	}
	if b.ReadableBytes() != 0 {
		t.Fatalf("expected empty buffer after RetrieveAll")
	}
}

func TestBufferGrowsBeyondInitialSize(t *testing.T) {
	b := NewBuffer()
	payload := bytes.Repeat([]byte("x"), bufferInitialSize*4)
	b.Append(payload)
	if got := b.ReadableBytes(); got != len(payload) {
		t.Fatalf("expected %d readable bytes, got %d", len(payload), got)
	}
	if !bytes.Equal(b.Peek(), payload) {
		t.Fatal("buffer content corrupted across growth")
	}
}

func TestBufferPrepend(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("body"))
	b.Prepend([]byte("HDR:"))
	if got := b.RetrieveAllAsString(); got != "HDR:body" {
		t.Fatalf("expected \"HDR:body\", got %q", got)
	}
}

func TestBufferShrinkPreservesContent(t *testing.T) {
	b := NewBuffer()
	b.Append(bytes.Repeat([]byte("y"), bufferInitialSize*8))
	b.Retrieve(bufferInitialSize*8 - 10)
	b.Shrink(0)
	if got := b.ReadableBytes(); got != 10 {
		t.Fatalf("expected 10 readable bytes after shrink, got %d", got)
	}
}

func TestBufferReadFdScatter(t *testing.T) {
	r, w, err := socketPairForTest(t)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	payload := bytes.Repeat([]byte("z"), bufferExtraSize+128)
	go func() {
		_, _ = w.Write(payload)
		_ = w.Close()
	}()

	b := NewBuffer()
	total := 0
	fd := fdOfTestFile(t, r)
	for total < len(payload) {
		n, err := b.ReadFd(fd)
		if n > 0 {
			total += n
		}
		if err != nil && n <= 0 {
			break
		}
	}
	if !bytes.Equal(b.Peek(), payload) {
		t.Fatalf("scattered read corrupted payload: got %d bytes, want %d", b.ReadableBytes(), len(payload))
	}
}
