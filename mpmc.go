// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is an unbounded multi-producer multi-consumer FIFO queue.
//
// Based on the Michael-Scott queue (PODC 1996) with counted references:
// head, tail and every node link hold a tagged ref, and each successful
// CAS bumps the tag, so a CAS armed with a stale ref fails even if the slot
// has since been recycled. A producer that finds the tail lagging helps
// swing it forward before retrying.
//
// Every operation that dereferences a node runs inside an epoch pin.
// Dequeued sentinels are retired, not reused, until every operation that
// could still hold them has unpinned.
//
// Linearization points:
//   - Enqueue: the CAS that links the new node after the last node
//   - Dequeue: the CAS that swings the head, or the Acquire load that
//     observes a nil link on the sentinel (empty)
//
// Memory: one arena slot per queued element plus the sentinel, plus
// retired slots awaiting reclamation.
type MPMC[T any] struct {
	_     pad
	tail  atomix.Uint64 // ref
	_     pad
	head  atomix.Uint64 // ref
	_     pad
	nodes *arena[T]
}

// NewMPMC creates an empty MPMC queue.
func NewMPMC[T any]() *MPMC[T] {
	return newMPMC[T](defaultSegmentShift)
}

func newMPMC[T any](shift uint) *MPMC[T] {
	q := &MPMC[T]{nodes: newArena[T](shift)}
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

// Enqueue adds an element to the tail of the queue.
//
// The element is copied into a node. Enqueue never reports a full queue;
// it returns ErrExhausted only if the node arena cannot grow any further.
func (q *MPMC[T]) Enqueue(elem *T) error {
	slot, err := q.nodes.alloc(elem)
	if err != nil {
		return err
	}

	e := q.nodes.epochs.pin()
	defer q.nodes.epochs.unpin(e)

	sw := spin.Wait{}
	for {
		tail := ref(q.tail.LoadAcquire())
		last := q.nodes.node(tail.slot())
		link := ref(last.next.LoadAcquire())
		if tail != ref(q.tail.LoadAcquire()) {
			continue
		}
		if link.isNil() {
			if last.next.CompareAndSwapAcqRel(uint64(link), uint64(link.next(slot))) {
				q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(tail.next(slot)))
				return nil
			}
		} else {
			// Tail is lagging: help the producer that linked link.
			q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(tail.next(link.slot())))
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMC[T]) Dequeue() (T, error) {
	e := q.nodes.epochs.pin()

	sw := spin.Wait{}
	for {
		head := ref(q.head.LoadAcquire())
		tail := ref(q.tail.LoadAcquire())
		sentinel := q.nodes.node(head.slot())
		link := ref(sentinel.next.LoadAcquire())
		if head != ref(q.head.LoadAcquire()) {
			continue
		}
		if link.isNil() {
			q.nodes.epochs.unpin(e)
			var zero T
			return zero, ErrWouldBlock
		}
		if head.slot() == tail.slot() {
			// Tail still points at the sentinel: help it forward first so
			// the head never overtakes the tail.
			q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(tail.next(link.slot())))
			continue
		}
		if q.head.CompareAndSwapAcqRel(uint64(head), uint64(head.next(link.slot()))) {
			// Only the goroutine that moved the head onto n touches its
			// payload, and n cannot be recycled while we are pinned.
			n := q.nodes.node(link.slot())
			elem := n.value
			var zero T
			n.value = zero
			q.nodes.epochs.unpin(e)
			q.nodes.retire(head.slot())
			return elem, nil
		}
		sw.Once()
	}
}

// IsEmpty reports whether the queue held no elements at the instant of
// the call. Under concurrent operations the answer may be stale on return.
func (q *MPMC[T]) IsEmpty() bool {
	e := q.nodes.epochs.pin()
	defer q.nodes.epochs.unpin(e)
	for {
		head := ref(q.head.LoadAcquire())
		link := ref(q.nodes.node(head.slot()).next.LoadAcquire())
		if head == ref(q.head.LoadAcquire()) {
			return link.isNil()
		}
	}
}
