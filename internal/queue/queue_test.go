// ABOUTME: Tests for the unbounded FIFO queue
package queue

import (
	"sync"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed on open queue", i)
		}
	}
	for i := 0; i < 100; i++ {
		v, ok, drained := q.TryPop()
		if !ok || drained {
			t.Fatalf("pop %d: ok=%v drained=%v", i, ok, drained)
		}
		if v != i {
			t.Fatalf("pop %d returned %d", i, v)
		}
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := New[string]()
	_, ok, drained := q.TryPop()
	if ok {
		t.Errorf("TryPop on empty queue returned a value")
	}
	if drained {
		t.Errorf("open empty queue reported drained")
	}
}

func TestCloseSemantics(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Errorf("push after close should fail")
	}

	// Queued values survive close.
	if v, ok, _ := q.TryPop(); !ok || v != 1 {
		t.Fatalf("expected 1 after close, got %d ok=%v", v, ok)
	}
	if v, ok, drained := q.TryPop(); !ok || v != 2 || drained {
		t.Fatalf("expected 2 before drained, got %d ok=%v drained=%v", v, ok, drained)
	}
	if _, ok, drained := q.TryPop(); ok || !drained {
		t.Errorf("expected drained after close+empty, got ok=%v drained=%v", ok, drained)
	}

	q.Close() // idempotent
}

func TestBlockingPop(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	got := make([]int, 0, 50)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			got = append(got, v)
		}
	}()

	for i := 0; i < 50; i++ {
		q.Push(i)
	}
	q.Close()
	wg.Wait()

	if len(got) != 50 {
		t.Fatalf("consumer saw %d values, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("value %d out of order: %d", i, v)
		}
	}
}

func TestPopReturnsFalseOnClosedEmpty(t *testing.T) {
	q := New[int]()
	done := make(chan struct{})
	go func() {
		_, ok := q.Pop()
		if ok {
			t.Errorf("Pop on closed empty queue returned a value")
		}
		close(done)
	}()
	q.Close()
	<-done
}
