// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	// defaultSegmentShift sizes the first arena segment at 64 nodes.
	defaultSegmentShift = 6
	// maxSlots bounds the arena's index space.
	maxSlots = 1 << 31
	// maxSegments covers maxSlots for any base shift >= 0.
	maxSegments = 32
	// reclaimEvery is the number of retirements between reclaim passes.
	reclaimEvery = 64
)

// node is one arena slot.
//
// next is the queue link and is only ever written through tagged refs.
// link threads the slot through the free or limbo stack and is never read
// by queue operations, so parking a slot does not disturb pinned readers
// still walking the chain.
type node[T any] struct {
	next    atomix.Uint64 // ref of the successor in the queue chain
	link    atomix.Uint64 // slot of the successor on the free/limbo stack
	retired atomix.Uint64 // retirement epoch + 1; 0 while live
	value   T
}

type segment[T any] struct {
	nodes []node[T]
}

// arena is a lock-free, growable pool of nodes addressed by stable slots.
//
// Segment k holds base<<k nodes, so the arena doubles without moving any
// node and slot lookups stay two loads deep. Released slots go through the
// epoch domain: retire parks them in limbo, reclaim moves those whose
// retirement epoch is at least two epochs old onto the free list, and
// alloc prefers the free list over fresh slots.
type arena[T any] struct {
	_       pad
	free    atomix.Uint64 // ref: tag | top slot of the free stack
	_       pad
	limbo   atomix.Uint64 // ref: tag | top slot of the limbo stack
	_       pad
	fresh   atomix.Uint64 // next never-used index
	_       pad
	retires atomix.Uint64 // retirement count, drives periodic reclaim
	_       pad
	epochs  epochDomain
	shift   uint
	segs    [maxSegments]atomix.Pointer[segment[T]]
}

func newArena[T any](shift uint) *arena[T] {
	return &arena[T]{shift: shift}
}

// locate maps a zero-based index to its segment and offset.
func (a *arena[T]) locate(idx uint64) (k int, off uint64) {
	v := idx + 1<<a.shift
	k = bits.Len64(v) - 1 - int(a.shift)
	off = v - 1<<(uint(k)+a.shift)
	return k, off
}

// node returns the node for slot. slot must be non-zero and allocated.
func (a *arena[T]) node(slot uint32) *node[T] {
	if debugChecks && slot == 0 {
		panic("lockfree: dereference of nil slot")
	}
	k, off := a.locate(uint64(slot) - 1)
	return &a.segs[k].LoadAcquire().nodes[off]
}

// alloc returns a live node carrying value, ready to be linked.
// It returns ErrExhausted when the index space is used up.
func (a *arena[T]) alloc(value *T) (uint32, error) {
	slot := a.popFree()
	if slot == 0 {
		a.reclaim()
		slot = a.popFree()
	}
	if slot == 0 {
		var err error
		if slot, err = a.grow(); err != nil {
			return 0, err
		}
	}
	n := a.node(slot)
	n.value = *value
	n.retired.StoreRelaxed(0)
	// Keep the link generation moving so stale refs to this slot's next
	// never match again.
	n.next.StoreRelease(uint64(ref(n.next.LoadRelaxed()).next(0)))
	return slot, nil
}

// grow claims a never-used slot, installing its segment on first touch.
func (a *arena[T]) grow() (uint32, error) {
	idx := a.fresh.AddAcqRel(1) - 1
	if idx >= maxSlots {
		return 0, ErrExhausted
	}
	k, _ := a.locate(idx)
	if a.segs[k].LoadAcquire() == nil {
		seg := &segment[T]{nodes: make([]node[T], uint64(1)<<(uint(k)+a.shift))}
		// Losers drop their segment and use the winner's.
		a.segs[k].CompareAndSwapAcqRel(nil, seg)
	}
	return uint32(idx + 1), nil
}

// retire parks slot until no pinned operation can still reach it.
// The node's payload must already have been taken.
func (a *arena[T]) retire(slot uint32) {
	n := a.node(slot)
	if debugChecks && n.retired.LoadAcquire() != 0 {
		panic("lockfree: slot retired twice")
	}
	n.retired.StoreRelease(a.epochs.current() + 1)
	a.push(&a.limbo, slot)
	if a.retires.AddAcqRel(1)%reclaimEvery == 0 {
		a.reclaim()
	}
}

// reclaim advances the epoch if possible and moves every limbo slot that
// is now safe onto the free list. Slots that are not yet safe go back to
// limbo for a later pass.
func (a *arena[T]) reclaim() {
	a.epochs.tryAdvance()
	slot := a.takeAll(&a.limbo)
	for slot != 0 {
		n := a.node(slot)
		following := uint32(n.link.LoadAcquire())
		if a.epochs.safe(n.retired.LoadAcquire() - 1) {
			a.push(&a.free, slot)
		} else {
			a.push(&a.limbo, slot)
		}
		slot = following
	}
}

// push is a Treiber-stack push of slot onto the stack rooted at top.
func (a *arena[T]) push(top *atomix.Uint64, slot uint32) {
	n := a.node(slot)
	sw := spin.Wait{}
	for {
		old := ref(top.LoadAcquire())
		n.link.StoreRelaxed(uint64(old.slot()))
		if top.CompareAndSwapAcqRel(uint64(old), uint64(old.next(slot))) {
			return
		}
		sw.Once()
	}
}

// popFree pops one slot from the free list, or returns 0 if it is empty.
//
// The tag on the stack head defeats ABA: a slot popped and pushed back in
// between the load and the CAS changes the tag, so a stale successor read
// from its link is never installed.
func (a *arena[T]) popFree() uint32 {
	sw := spin.Wait{}
	for {
		old := ref(a.free.LoadAcquire())
		if old.isNil() {
			return 0
		}
		following := uint32(a.node(old.slot()).link.LoadAcquire())
		if a.free.CompareAndSwapAcqRel(uint64(old), uint64(old.next(following))) {
			return old.slot()
		}
		sw.Once()
	}
}

// takeAll detaches the whole stack rooted at top and returns its first
// slot. The detached chain is private to the caller.
func (a *arena[T]) takeAll(top *atomix.Uint64) uint32 {
	sw := spin.Wait{}
	for {
		old := ref(top.LoadAcquire())
		if old.isNil() {
			return 0
		}
		if top.CompareAndSwapAcqRel(uint64(old), uint64(old.next(0))) {
			return old.slot()
		}
		sw.Once()
	}
}

// footprint reports the number of slots ever handed out, the current
// global epoch, and how many slots sit in limbo and on the free list.
// The stack counts walk the stacks and are only meaningful while the
// arena is quiescent.
func (a *arena[T]) footprint() (slots, epoch uint64, limbo, free int) {
	count := func(top *atomix.Uint64) int {
		c := 0
		for s := ref(top.LoadAcquire()).slot(); s != 0; s = uint32(a.node(s).link.LoadAcquire()) {
			c++
		}
		return c
	}
	return min(a.fresh.LoadAcquire(), maxSlots), a.epochs.current(), count(&a.limbo), count(&a.free)
}
