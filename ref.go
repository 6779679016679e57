// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// ref is a tagged reference to an arena slot.
//
// Layout: [hi 32 = generation tag | lo 32 = slot]
//
// slot is the arena index plus one, so slot 0 is the nil reference. Every
// successful compare-and-swap on a location holding a ref stores tag+1,
// which makes a stale ref fail the CAS even after its slot has been
// recycled back to the same position (ABA).
type ref uint64

const (
	slotBits = 32
	slotMask = 1<<slotBits - 1
)

func makeRef(tag, slot uint32) ref {
	return ref(uint64(tag)<<slotBits | uint64(slot))
}

func (r ref) slot() uint32 { return uint32(r & slotMask) }

func (r ref) tag() uint32 { return uint32(r >> slotBits) }

func (r ref) isNil() bool { return r.slot() == 0 }

// next returns a ref to slot carrying the successor generation of r.
func (r ref) next(slot uint32) ref {
	return makeRef(r.tag()+1, slot)
}
