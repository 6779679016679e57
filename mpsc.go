// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is an unbounded multi-producer single-consumer FIFO queue.
//
// Nodes form a singly linked chain that starts at a sentinel. Producers
// swing the tail with compare-and-swap (losers retry) and then publish the
// link from the previous tail with a Release store. The single consumer
// owns the head and advances it with plain stores.
//
// Producers never dereference a node unless their tail CAS succeeded, and
// the consumer cannot move past a node whose link is not yet published, so
// the consumer is the only goroutine that ever reads a node it retires.
//
// Ordering: elements from one producer are dequeued in the order that
// producer enqueued them; elements from different producers interleave in
// the order their tail CAS operations took effect.
//
// Memory: one arena slot per queued element plus the sentinel. Slots are
// recycled through the epoch-based reclaimer.
//
// Single consumer: at most one goroutine may call Dequeue at a time. This
// is a precondition the caller must uphold, not a checked condition. In a
// normal build, concurrent Dequeue calls can return the same element twice
// and retire the same slot twice, corrupting the arena. Use MPMC when
// several goroutines consume. Consumer hands out one exclusive handle for
// code that wants the discipline spelled out in its types; the
// lockfree_debug build tag turns a concurrent Dequeue into a panic.
type MPSC[T any] struct {
	_         pad
	tail      atomix.Uint64 // ref; producers CAS here
	_         pad
	head      atomix.Uint64 // ref; written by the consumer only
	_         pad
	consuming atomix.Uint64 // debug only: non-zero while a Dequeue runs
	_         pad
	claimed   atomix.Bool // a Consumer handle has been issued
	nodes     *arena[T]
}

// MPSCConsumer is the consumer side of an MPSC queue. Each queue issues at
// most one, so holding it is the right to dequeue. Do not copy it or share
// it between goroutines without handing it off.
type MPSCConsumer[T any] struct {
	q *MPSC[T]
}

// Consumer claims the consumer side of q. The first call returns the
// handle and true; every later call returns nil and false.
func (q *MPSC[T]) Consumer() (*MPSCConsumer[T], bool) {
	if !q.claimed.CompareAndSwapAcqRel(false, true) {
		return nil, false
	}
	return &MPSCConsumer[T]{q: q}, true
}

// Dequeue removes and returns the oldest visible element.
// Returns (zero-value, ErrWouldBlock) if no element is visible yet.
func (c *MPSCConsumer[T]) Dequeue() (T, error) {
	return c.q.Dequeue()
}

// IsEmpty reports whether the queue held no elements at the instant of
// the call.
func (c *MPSCConsumer[T]) IsEmpty() bool {
	return c.q.IsEmpty()
}

// NewMPSC creates an empty MPSC queue.
func NewMPSC[T any]() *MPSC[T] {
	return newMPSC[T](defaultSegmentShift)
}

func newMPSC[T any](shift uint) *MPSC[T] {
	q := &MPSC[T]{nodes: newArena[T](shift)}
	var zero T
	sentinel, err := q.nodes.alloc(&zero)
	if err != nil {
		panic("lockfree: cannot allocate sentinel: " + err.Error())
	}
	r := makeRef(0, sentinel)
	q.head.StoreRelaxed(uint64(r))
	q.tail.StoreRelease(uint64(r))
	return q
}

// Enqueue adds an element to the tail of the queue (multiple producers safe).
//
// The element is copied into a node. Enqueue never reports a full queue;
// it returns ErrExhausted only if the node arena cannot grow any further.
func (q *MPSC[T]) Enqueue(elem *T) error {
	slot, err := q.nodes.alloc(elem)
	if err != nil {
		return err
	}
	sw := spin.Wait{}
	for {
		tail := ref(q.tail.LoadAcquire())
		if q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(tail.next(slot))) {
			prev := q.nodes.node(tail.slot())
			link := ref(prev.next.LoadRelaxed())
			prev.next.StoreRelease(uint64(link.next(slot)))
			return nil
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest visible element (single consumer only).
// Returns (zero-value, ErrWouldBlock) if no element is visible yet.
//
// An element whose producer has swung the tail but not yet published the
// link is not visible; Dequeue reports empty rather than waiting for it.
func (q *MPSC[T]) Dequeue() (T, error) {
	if debugChecks {
		if !q.consuming.CompareAndSwapAcqRel(0, 1) {
			panic("lockfree: concurrent Dequeue on MPSC")
		}
		defer q.consuming.StoreRelease(0)
	}

	head := ref(q.head.LoadRelaxed())
	sentinel := q.nodes.node(head.slot())
	link := ref(sentinel.next.LoadAcquire())
	if link.isNil() {
		var zero T
		return zero, ErrWouldBlock
	}

	n := q.nodes.node(link.slot())
	elem := n.value
	var zero T
	n.value = zero
	q.head.StoreRelease(uint64(head.next(link.slot())))
	q.nodes.retire(head.slot())
	return elem, nil
}

// IsEmpty reports whether the queue held no elements at the instant of
// the call. Under concurrent producers the answer may be stale on return.
//
// A producer that has swung the tail but not yet published its link makes
// IsEmpty report false while Dequeue still reports ErrWouldBlock.
func (q *MPSC[T]) IsEmpty() bool {
	return ref(q.head.LoadAcquire()).slot() == ref(q.tail.LoadAcquire()).slot()
}
