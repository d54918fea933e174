package reactor

import "testing"

func TestEventHasAny(t *testing.T) {
	e := EventReadable | EventError
	if !e.Has(EventReadable) {
		t.Fatal("expected Has(EventReadable)")
	}
	if e.Has(EventWritable) {
		t.Fatal("did not expect Has(EventWritable)")
	}
	if !e.Any(EventWritable | EventError) {
		t.Fatal("expected Any to match EventError")
	}
	if e.IsNone() {
		t.Fatal("mask is not none")
	}
	if !noneEvent.IsNone() {
		t.Fatal("noneEvent should report IsNone")
	}
}

func TestEventString(t *testing.T) {
	if s := EventReadable.String(); s == "" {
		t.Fatal("expected non-empty string representation")
	}
}
