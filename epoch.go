// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "code.hybscloud.com/atomix"

// epochDomain tracks which epochs still have operations in flight.
//
// Goroutines have no stable identity, so instead of per-thread records the
// domain keeps one pin counter per epoch residue (epoch mod 3). An operation
// pins the epoch it observes and re-validates; if the global epoch moved in
// between, it backs out and retries, so a counted pin at epoch e was
// observed while global == e.
//
// The global epoch advances from e to e+1 only when nothing is pinned at
// e-1. Therefore once global >= r+2, every operation that pinned at or
// before r has finished, and a node unlinked before epoch r was read can no
// longer be dereferenced by anyone.
//
// The argument relies on a single total order over pins, re-validation and
// the advance. A full barrier sits between each pin increment and the
// re-validating load, and between the advancer's epoch load and its pin
// check.
type epochDomain struct {
	_      pad
	global atomix.Uint64
	_      pad
	pins   [3]epochPins
}

type epochPins struct {
	n atomix.Int64
	_ padShort
}

// pin registers an operation at the current epoch and returns that epoch.
// The caller must pass the result to unpin.
func (d *epochDomain) pin() uint64 {
	for {
		e := d.global.LoadAcquire()
		d.pins[e%3].n.AddAcqRel(1)
		atomix.BarrierAcqRel()
		if d.global.LoadAcquire() == e {
			return e
		}
		d.pins[e%3].n.AddRelease(-1)
	}
}

func (d *epochDomain) unpin(e uint64) {
	d.pins[e%3].n.AddRelease(-1)
}

func (d *epochDomain) current() uint64 {
	return d.global.LoadAcquire()
}

// tryAdvance moves the global epoch forward by one if no operation is
// still pinned at the previous epoch. It returns the epoch observed after
// the attempt.
func (d *epochDomain) tryAdvance() uint64 {
	e := d.global.LoadAcquire()
	atomix.BarrierAcqRel()
	// (e+2)%3 is the residue of e-1 without underflow at e == 0.
	if d.pins[(e+2)%3].n.LoadAcquire() != 0 {
		return e
	}
	if d.global.CompareAndSwapAcqRel(e, e+1) {
		return e + 1
	}
	return d.global.LoadAcquire()
}

// safe reports whether a node retired at epoch r can be reused.
func (d *epochDomain) safe(r uint64) bool {
	return d.global.LoadAcquire() >= r+2
}
