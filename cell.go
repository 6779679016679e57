// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"math"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Counter is a 64-bit unsigned atomic counter.
//
// Every read returns a complete value; there are no torn reads. The zero
// value is a counter at 0 and is ready to use. A Counter must not be copied
// after first use.
//
// Example:
//
//	var spikes lockfree.Counter
//	spikes.Increment()
//	n := spikes.Load(lockfree.Acquire)
type Counter struct {
	v atomix.Uint64
}

// NewCounter returns a counter holding v.
func NewCounter(v uint64) *Counter {
	c := &Counter{}
	c.v.StoreRelaxed(v)
	return c
}

// Load returns the current value.
func (c *Counter) Load(o Ordering) uint64 {
	switch o.forLoad() {
	case Relaxed:
		return c.v.LoadRelaxed()
	case Acquire:
		return c.v.LoadAcquire()
	default:
		atomix.BarrierAcqRel()
		return c.v.LoadAcquire()
	}
}

// Store sets the value to v.
func (c *Counter) Store(v uint64, o Ordering) {
	switch o.forStore() {
	case Relaxed:
		c.v.StoreRelaxed(v)
	case Release:
		c.v.StoreRelease(v)
	default:
		c.v.StoreRelease(v)
		atomix.BarrierAcqRel()
	}
}

// FetchAdd adds delta and returns the value held before the addition.
// The counter wraps on overflow.
func (c *Counter) FetchAdd(delta uint64, o Ordering) uint64 {
	switch o.forRMW() {
	case Relaxed:
		return c.v.AddRelaxed(delta) - delta
	case Acquire:
		return c.v.AddAcquire(delta) - delta
	case Release:
		return c.v.AddRelease(delta) - delta
	case AcqRel:
		return c.v.AddAcqRel(delta) - delta
	default:
		atomix.BarrierAcqRel()
		n := c.v.AddAcqRel(delta)
		atomix.BarrierAcqRel()
		return n - delta
	}
}

// FetchSub subtracts delta and returns the value held before the
// subtraction. The counter wraps on underflow.
func (c *Counter) FetchSub(delta uint64, o Ordering) uint64 {
	return c.FetchAdd(-delta, o)
}

// Increment adds one with SeqCst ordering and returns the previous value.
func (c *Counter) Increment() uint64 {
	return c.FetchAdd(1, SeqCst)
}

// Decrement subtracts one with SeqCst ordering and returns the previous value.
func (c *Counter) Decrement() uint64 {
	return c.FetchSub(1, SeqCst)
}

// CompareAndSwap sets the value to new if it currently equals old.
// It reports whether the swap happened.
func (c *Counter) CompareAndSwap(old, new uint64, o Ordering) bool {
	return casUint64(&c.v, old, new, o)
}

// Flag is an atomic boolean.
//
// The zero value is false and is ready to use. A Flag must not be copied
// after first use.
type Flag struct {
	v atomix.Bool
}

// NewFlag returns a flag holding v.
func NewFlag(v bool) *Flag {
	f := &Flag{}
	f.v.StoreRelaxed(v)
	return f
}

// Load returns the current value.
func (f *Flag) Load(o Ordering) bool {
	switch o.forLoad() {
	case Relaxed:
		return f.v.LoadRelaxed()
	case Acquire:
		return f.v.LoadAcquire()
	default:
		atomix.BarrierAcqRel()
		return f.v.LoadAcquire()
	}
}

// Store sets the value to v.
func (f *Flag) Store(v bool, o Ordering) {
	switch o.forStore() {
	case Relaxed:
		f.v.StoreRelaxed(v)
	case Release:
		f.v.StoreRelease(v)
	default:
		f.v.StoreRelease(v)
		atomix.BarrierAcqRel()
	}
}

// CompareAndSwap sets the flag to new if it currently equals old.
// It reports whether the swap happened.
func (f *Flag) CompareAndSwap(old, new bool, o Ordering) bool {
	switch o.forRMW() {
	case Relaxed:
		return f.v.CompareAndSwapRelaxed(old, new)
	case Acquire:
		return f.v.CompareAndSwapAcquire(old, new)
	case Release:
		return f.v.CompareAndSwapRelease(old, new)
	case AcqRel:
		return f.v.CompareAndSwapAcqRel(old, new)
	default:
		atomix.BarrierAcqRel()
		ok := f.v.CompareAndSwapAcqRel(old, new)
		atomix.BarrierAcqRel()
		return ok
	}
}

// Float is an atomic float64 stored as its IEEE-754 bit pattern.
//
// Loads and stores move the whole 64-bit word, so readers never observe a
// partially written value. The zero value is +0.0 and is ready to use.
type Float struct {
	bits atomix.Uint64
}

// NewFloat returns a float cell holding v.
func NewFloat(v float64) *Float {
	f := &Float{}
	f.bits.StoreRelaxed(math.Float64bits(v))
	return f
}

// Load returns the current value.
func (f *Float) Load(o Ordering) float64 {
	switch o.forLoad() {
	case Relaxed:
		return math.Float64frombits(f.bits.LoadRelaxed())
	case Acquire:
		return math.Float64frombits(f.bits.LoadAcquire())
	default:
		atomix.BarrierAcqRel()
		return math.Float64frombits(f.bits.LoadAcquire())
	}
}

// Store sets the value to v.
func (f *Float) Store(v float64, o Ordering) {
	b := math.Float64bits(v)
	switch o.forStore() {
	case Relaxed:
		f.bits.StoreRelaxed(b)
	case Release:
		f.bits.StoreRelease(b)
	default:
		f.bits.StoreRelease(b)
		atomix.BarrierAcqRel()
	}
}

// FetchAdd adds delta and returns the value held before the addition.
//
// Implemented as a compare-and-swap loop on the bit pattern; o applies to
// the successful swap. A NaN held in the cell compares by bits, so the loop
// still terminates.
func (f *Float) FetchAdd(delta float64, o Ordering) float64 {
	sw := spin.Wait{}
	for {
		old := f.bits.LoadRelaxed()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if casUint64(&f.bits, old, next, o) {
			return math.Float64frombits(old)
		}
		sw.Once()
	}
}

// casUint64 dispatches a compare-and-swap on v to the atomix form for o.
func casUint64(v *atomix.Uint64, old, new uint64, o Ordering) bool {
	switch o.forRMW() {
	case Relaxed:
		return v.CompareAndSwapRelaxed(old, new)
	case Acquire:
		return v.CompareAndSwapAcquire(old, new)
	case Release:
		return v.CompareAndSwapRelease(old, new)
	case AcqRel:
		return v.CompareAndSwapAcqRel(old, new)
	default:
		atomix.BarrierAcqRel()
		ok := v.CompareAndSwapAcqRel(old, new)
		atomix.BarrierAcqRel()
		return ok
	}
}
