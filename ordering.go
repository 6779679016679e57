// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Ordering selects the memory-ordering strength of a single atomic operation.
//
// The vocabulary is the portable C++11/Rust set. Each cell method translates
// the value at the call site into the matching atomix instruction, so callers
// can trade weaker orderings for speed on hot paths and keep SeqCst where the
// surrounding logic depends on a single total order.
//
// Every ordering is valid for a read-modify-write. Orderings that carry no
// meaning for a plain load or store are promoted to the nearest valid
// ordering that is never weaker:
//
//	load:  Release → SeqCst, AcqRel → Acquire
//	store: Acquire → SeqCst, AcqRel → Release
//
// atomix has no sequentially consistent instructions, so a SeqCst access is
// the Acquire, Release or AcqRel form bracketed by full barriers.
//
// Operations never fail because of the ordering argument.
type Ordering uint8

const (
	// Relaxed guarantees atomicity only. No happens-before edge is formed.
	Relaxed Ordering = iota
	// Acquire makes writes released by the observed store visible to
	// subsequent reads in this goroutine.
	Acquire
	// Release publishes all prior writes to any goroutine that
	// acquire-loads the stored value.
	Release
	// AcqRel combines Acquire and Release on a read-modify-write.
	AcqRel
	// SeqCst adds a single total order over all SeqCst operations.
	SeqCst
)

// String returns the conventional name of the ordering.
func (o Ordering) String() string {
	switch o {
	case Relaxed:
		return "Relaxed"
	case Acquire:
		return "Acquire"
	case Release:
		return "Release"
	case AcqRel:
		return "AcqRel"
	case SeqCst:
		return "SeqCst"
	default:
		return "Ordering(invalid)"
	}
}

// forLoad maps o onto the orderings a load can carry.
func (o Ordering) forLoad() Ordering {
	switch o {
	case Relaxed, Acquire:
		return o
	case AcqRel:
		return Acquire
	default:
		return SeqCst
	}
}

// forStore maps o onto the orderings a store can carry.
func (o Ordering) forStore() Ordering {
	switch o {
	case Relaxed, Release:
		return o
	case AcqRel:
		return Release
	default:
		return SeqCst
	}
}

// forRMW maps o onto the orderings a read-modify-write can carry: all of
// them. Out-of-range values are treated as SeqCst.
func (o Ordering) forRMW() Ordering {
	if o > SeqCst {
		return SeqCst
	}
	return o
}
