package containers

import "testing"

func TestRingQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewRingQueue[int](3)
	for _, v := range []int{1, 2, 3} {
		if err := q.Enqueue(v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}
	if err := q.Enqueue(4); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	for _, want := range []int{1, 2, 3} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue = %d, want %d", got, want)
		}
	}
	if _, err := q.Dequeue(); err != ErrQueueEmpty {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueueEnqueueOverwriteDropsOldest(t *testing.T) {
	q := NewRingQueue[float32](2)
	q.EnqueueOverwrite(1)
	q.EnqueueOverwrite(2)
	q.EnqueueOverwrite(3) // drops 1

	dst := make([]float32, 2)
	n := q.Snapshot(dst)
	if n != 2 || dst[0] != 2 || dst[1] != 3 {
		t.Fatalf("Snapshot = %v (n=%d), want [2 3]", dst, n)
	}
}

func TestRingQueueWrapsIndices(t *testing.T) {
	q := NewRingQueue[int](2)
	q.Enqueue(1)
	q.Enqueue(2)
	q.Dequeue()
	q.Enqueue(3)
	v, _ := q.Dequeue()
	if v != 2 {
		t.Fatalf("Dequeue = %d, want 2", v)
	}
	v, _ = q.Dequeue()
	if v != 3 {
		t.Fatalf("Dequeue = %d, want 3", v)
	}
}
