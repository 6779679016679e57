// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Queue is the combined producer-consumer interface for an unbounded FIFO
// queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Enqueue always
// succeeds unless the node arena is exhausted; Dequeue returns ErrWouldBlock
// when no element is visible.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// IsEmpty is a snapshot and may be stale by the time it returns.
//
// Example:
//
//	q := lockfree.NewMPMC[int]()
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Node arena exhausted
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	IsEmpty() bool
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs at the
// call site. The queue stores a copy of the pointed-to value, so the
// original can be modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the tail of the queue (non-blocking).
	// Returns nil on success, ErrExhausted if no node can be allocated.
	//
	// Enqueue is safe for any number of concurrent producers on both
	// MPSC and MPMC.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value. The node's copy is cleared so the
// garbage collector can release anything it referenced.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// Thread safety depends on queue type:
	//   - MPSC: single consumer only
	//   - MPMC: multiple consumers safe
	Dequeue() (T, error)
}

var (
	_ Queue[int] = (*MPSC[int])(nil)
	_ Queue[int] = (*MPMC[int])(nil)

	_ Consumer[int] = (*MPSCConsumer[int])(nil)
)
