package reactor

import (
	"testing"
	"time"
)

// dispatchRecorder tracks which Channel callbacks fired for one synthetic
// HandleEvent call.
type dispatchRecorder struct {
	order []string
}

func (r *dispatchRecorder) wire(ch *Channel) {
	ch.SetReadCallback(func(time.Time) { r.order = append(r.order, "read") })
	ch.SetWriteCallback(func() { r.order = append(r.order, "write") })
	ch.SetCloseCallback(func() { r.order = append(r.order, "close") })
	ch.SetErrorCallback(func() { r.order = append(r.order, "error") })
}

func TestHandleEventHangupWithoutReadableInvokesClose(t *testing.T) {
	ch := &Channel{fd: -1, status: statusNew, index: -1}
	var r dispatchRecorder
	r.wire(ch)

	ch.setRevents(EventHangup)
	ch.HandleEvent(time.Now())

	if len(r.order) != 1 || r.order[0] != "close" {
		t.Fatalf("expected only the close callback, got %v", r.order)
	}
}

func TestHandleEventHangupWithReadableInvokesRead(t *testing.T) {
	ch := &Channel{fd: -1, status: statusNew, index: -1}
	var r dispatchRecorder
	r.wire(ch)

	ch.setRevents(EventHangup | EventReadable)
	ch.HandleEvent(time.Now())

	for _, name := range r.order {
		if name == "close" {
			t.Fatalf("close must not fire while readable data remains, got %v", r.order)
		}
	}
	if len(r.order) == 0 || r.order[0] != "read" {
		t.Fatalf("expected the read callback, got %v", r.order)
	}
}

func TestHandleEventErrorBeforeReadBeforeWrite(t *testing.T) {
	ch := &Channel{fd: -1, status: statusNew, index: -1}
	var r dispatchRecorder
	r.wire(ch)

	ch.setRevents(EventError | EventReadable | EventWritable)
	ch.HandleEvent(time.Now())

	want := []string{"error", "read", "write"}
	if len(r.order) != len(want) {
		t.Fatalf("expected %v, got %v", want, r.order)
	}
	for i := range want {
		if r.order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, r.order)
		}
	}
}

func TestHandleEventPeerHangupInvokesRead(t *testing.T) {
	ch := &Channel{fd: -1, status: statusNew, index: -1}
	var r dispatchRecorder
	r.wire(ch)

	ch.setRevents(EventPeerHangup)
	ch.HandleEvent(time.Now())

	if len(r.order) != 1 || r.order[0] != "read" {
		t.Fatalf("expected the read callback for peer-hangup, got %v", r.order)
	}
}

func TestHandleEventTiedToCollectedOwnerDropsEvent(t *testing.T) {
	ch := &Channel{fd: -1, status: statusNew, index: -1}
	var r dispatchRecorder
	r.wire(ch)
	ch.tied = true // zero-value weak pointer never promotes

	ch.setRevents(EventReadable)
	ch.HandleEvent(time.Now())

	if len(r.order) != 0 {
		t.Fatalf("expected no callbacks for a dead tie, got %v", r.order)
	}
}
