// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Footprint exposes arena accounting to tests.
type Footprint struct {
	Slots uint64
	Epoch uint64
	Limbo int
	Free  int
}

func footprintOf[T any](a *arena[T]) Footprint {
	slots, epoch, limbo, free := a.footprint()
	return Footprint{Slots: slots, Epoch: epoch, Limbo: limbo, Free: free}
}

// FootprintMPSC reports q's arena accounting. q must be quiescent.
func FootprintMPSC[T any](q *MPSC[T]) Footprint { return footprintOf(q.nodes) }

// FootprintMPMC reports q's arena accounting. q must be quiescent.
func FootprintMPMC[T any](q *MPMC[T]) Footprint { return footprintOf(q.nodes) }

// SegmentShiftOf reports the first-segment shift a queue was built with.
func SegmentShiftOf[T any](q Queue[T]) uint {
	switch q := q.(type) {
	case *MPSC[T]:
		return q.nodes.shift
	case *MPMC[T]:
		return q.nodes.shift
	}
	return 0
}

// OrderingForLoad, OrderingForStore and OrderingForRMW expose ordering
// promotion to tests.
func OrderingForLoad(o Ordering) Ordering  { return o.forLoad() }
func OrderingForStore(o Ordering) Ordering { return o.forStore() }
func OrderingForRMW(o Ordering) Ordering   { return o.forRMW() }
