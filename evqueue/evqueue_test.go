package evqueue_test

import (
	"testing"

	"github.com/momentics/hioload-link/codec"
	"github.com/momentics/hioload-link/evqueue"
)

func TestFIFOOrder(t *testing.T) {
	q := evqueue.New(8)
	for i := 0; i < q.Cap(); i++ {
		ev := codec.Event{Type: codec.EventOpen, CloseCode: uint16(i)}
		if !q.Push(ev) {
			t.Fatalf("push %d unexpectedly failed", i)
		}
	}
	// one more push should fail: capacity-1 slots are the usable ones? No —
	// here we push exactly Cap() events, which should all succeed and then
	// the (Cap()+1)th push must fail.
	if q.Push(codec.Event{Type: codec.EventOpen}) {
		t.Fatal("expected queue to report full")
	}
	for i := 0; i < q.Cap(); i++ {
		ev, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d unexpectedly failed", i)
		}
		if ev.CloseCode != uint16(i) {
			t.Fatalf("pop %d: got close code %d, want %d", i, ev.CloseCode, i)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected queue to report empty")
	}
}

func TestMinCapacityFloor(t *testing.T) {
	q := evqueue.New(1)
	if q.Cap() != evqueue.MinCapacity {
		t.Fatalf("Cap() = %d, want floor %d", q.Cap(), evqueue.MinCapacity)
	}
}

func TestEmpty(t *testing.T) {
	q := evqueue.New(8)
	if !q.Empty() {
		t.Fatal("new queue should be empty")
	}
	q.Push(codec.Event{Type: codec.EventOpen})
	if q.Empty() {
		t.Fatal("queue with one event should not be empty")
	}
}
