// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "math/bits"

// Options configures queue creation and algorithm selection.
type Options struct {
	// Consumer constraint (determines queue type)
	singleConsumer bool

	// Arena sizing: the first segment holds 1<<segmentShift nodes
	segmentShift uint
}

// maxSegmentShift caps the first arena segment at 1M nodes.
const maxSegmentShift = 20

// Builder creates queues with fluent configuration.
//
// Builder selects the algorithm from the consumer constraint. Producers
// are always unconstrained: both queue types accept any number of
// concurrent producers.
//
// Example:
//
//	// MPSC queue (many producers, one consumer)
//	q := lockfree.BuildMPSC[Event](lockfree.New().SingleConsumer())
//
//	// MPMC queue (default, general purpose)
//	q := lockfree.BuildMPMC[Request](lockfree.New())
//
//	// Pre-size the first arena segment for a known burst
//	q := lockfree.Build[Spike](lockfree.New().Reserve(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with default options.
func New() *Builder {
	return &Builder{opts: Options{segmentShift: defaultSegmentShift}}
}

// SingleConsumer declares that only one goroutine will dequeue.
// Selects the MPSC algorithm, whose consumer needs no compare-and-swap.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Reserve sizes the first arena segment to hold at least n nodes, so a
// queue expected to hold about n elements grows its arena once instead of
// several times. n rounds up to the next power of 2 and is capped at 1<<20.
//
// Panics if n < 1.
func (b *Builder) Reserve(n int) *Builder {
	if n < 1 {
		panic("lockfree: reserve must be >= 1")
	}
	shift := uint(bits.Len(uint(roundToPow2(n)))) - 1
	b.opts.segmentShift = min(shift, maxSegmentShift)
	return b
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleConsumer → MPSC (CAS producers, sequential consumer)
//	Default        → MPMC (Michael-Scott, CAS on both ends)
//
// For type-safe returns with concrete types, use:
//   - BuildMPSC[T](b) → *MPSC[T]
//   - BuildMPMC[T](b) → *MPMC[T]
func Build[T any](b *Builder) Queue[T] {
	if b.opts.singleConsumer {
		return newMPSC[T](b.opts.segmentShift)
	}
	return newMPMC[T](b.opts.segmentShift)
}

// BuildMPSC creates an MPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleConsumer().
func BuildMPSC[T any](b *Builder) *MPSC[T] {
	if !b.opts.singleConsumer {
		panic("lockfree: BuildMPSC requires SingleConsumer()")
	}
	return newMPSC[T](b.opts.segmentShift)
}

// BuildMPMC creates an MPMC queue with compile-time type safety.
// Panics if builder has SingleConsumer() set.
func BuildMPMC[T any](b *Builder) *MPMC[T] {
	if b.opts.singleConsumer {
		panic("lockfree: BuildMPMC requires no constraints")
	}
	return newMPMC[T](b.opts.segmentShift)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
