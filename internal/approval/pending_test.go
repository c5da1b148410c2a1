package approval

import (
	"testing"
	"time"
)

func TestPendingResolve(t *testing.T) {
	reg := newPendingRegistry()
	ch := reg.Register("req-1")

	if !reg.Resolve("req-1", decision{approved: true, actorName: "alice"}) {
		t.Fatal("expected resolve to succeed for a registered request")
	}

	select {
	case d := <-ch:
		if !d.approved || d.actorName != "alice" {
			t.Errorf("unexpected decision: %+v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("decision was not delivered")
	}

	if reg.Len() != 0 {
		t.Errorf("resolved entry must be removed, %d remain", reg.Len())
	}
}

func TestPendingDuplicateDiscarded(t *testing.T) {
	reg := newPendingRegistry()
	reg.Register("req-1")

	if !reg.Resolve("req-1", decision{approved: true}) {
		t.Fatal("first resolve must succeed")
	}
	if reg.Resolve("req-1", decision{approved: false}) {
		t.Error("second resolve for the same request must report false")
	}
}

func TestPendingUnknownID(t *testing.T) {
	reg := newPendingRegistry()
	if reg.Resolve("never-registered", decision{}) {
		t.Error("resolve for an unknown request must report false")
	}
}

func TestPendingCancel(t *testing.T) {
	reg := newPendingRegistry()
	reg.Register("req-1")
	reg.Cancel("req-1")

	if reg.Len() != 0 {
		t.Errorf("cancelled entry must be removed, %d remain", reg.Len())
	}
	if reg.Resolve("req-1", decision{approved: true}) {
		t.Error("a late signal after cancel must be discarded")
	}
}

func TestPendingResolveNeverBlocks(t *testing.T) {
	reg := newPendingRegistry()
	reg.Register("req-1")

	done := make(chan struct{})
	go func() {
		// No one is reading the channel; the buffered slot absorbs it.
		reg.Resolve("req-1", decision{approved: true})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resolve blocked on a waiter that is not reading")
	}
}

func TestPendingLen(t *testing.T) {
	reg := newPendingRegistry()
	reg.Register("a")
	reg.Register("b")
	if reg.Len() != 2 {
		t.Errorf("expected 2 pending, got %d", reg.Len())
	}
	reg.Cancel("a")
	if reg.Len() != 1 {
		t.Errorf("expected 1 pending, got %d", reg.Len())
	}
}
