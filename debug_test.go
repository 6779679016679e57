// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lockfree_debug

package lockfree

import "testing"

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	f()
}

func TestDebugConcurrentMPSCDequeue(t *testing.T) {
	q := NewMPSC[int]()
	v := 1
	q.Enqueue(&v)

	// Pretend another consumer is inside Dequeue.
	q.consuming.Store(1)
	expectPanic(t, "second consumer", func() { q.Dequeue() })

	q.consuming.Store(0)
	if got, err := q.Dequeue(); err != nil || got != 1 {
		t.Fatalf("Dequeue: got (%d, %v), want (1, nil)", got, err)
	}
}

// TestDebugConsumerHandleShares verifies that the exclusive handle and a
// direct Dequeue on the queue are one consumer as far as the check goes.
func TestDebugConsumerHandleShares(t *testing.T) {
	q := NewMPSC[int]()
	c, ok := q.Consumer()
	if !ok {
		t.Fatal("Consumer: got false, want true")
	}
	q.consuming.Store(1)
	expectPanic(t, "handle while queue consumer active", func() { c.Dequeue() })
	q.consuming.Store(0)
}

func TestDebugDoubleRetire(t *testing.T) {
	a := newArena[int](0)
	v := 1
	s, _ := a.alloc(&v)
	a.retire(s)
	expectPanic(t, "double retire", func() { a.retire(s) })
}

func TestDebugNilSlot(t *testing.T) {
	a := newArena[int](0)
	expectPanic(t, "nil slot", func() { a.node(0) })
}
