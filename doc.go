// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lockfree provides unbounded lock-free FIFO queues and atomic
// cells with explicit memory ordering.
//
// The package offers two queue variants and three cell types:
//
//   - MPSC: Multi-Producer Single-Consumer queue
//   - MPMC: Multi-Producer Multi-Consumer queue
//   - Counter, Flag, Float: single-word atomic cells whose operations take
//     an [Ordering] (Relaxed, Acquire, Release, AcqRel, SeqCst)
//
// No operation in this package takes a lock or blocks. Waiting for data is
// the caller's job.
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := lockfree.NewMPSC[Event]()
//	q := lockfree.NewMPMC[*Request]()
//
// Builder API selects the algorithm from the consumer constraint:
//
//	q := lockfree.Build[Event](lockfree.New().SingleConsumer())  // → MPSC
//	q := lockfree.Build[Event](lockfree.New())                   // → MPMC
//
// # Basic Usage
//
// Both queues share the same interface:
//
//	q := lockfree.NewMPMC[int]()
//
//	// Enqueue (non-blocking, never full)
//	value := 42
//	if err := q.Enqueue(&value); err != nil {
//	    // Only ErrExhausted: the node arena cannot grow
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if lockfree.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Common Patterns
//
// Event Aggregation (MPSC):
//
//	// Many simulation workers → one integrator
//	q := lockfree.NewMPSC[SpikeEvent]()
//
//	for w := range workers {
//	    go func() {
//	        for ev := range w.Spikes() {
//	            q.Enqueue(&ev)
//	        }
//	    }()
//	}
//
//	go func() {
//	    backoff := iox.Backoff{}
//	    for {
//	        ev, err := q.Dequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        integrate(ev)
//	    }
//	}()
//
// Work Distribution (MPMC):
//
//	q := lockfree.NewMPMC[Update]()
//
//	for range numWorkers {
//	    go func() {
//	        for {
//	            u, err := q.Dequeue()
//	            if err == nil {
//	                u.Apply()
//	            }
//	        }
//	    }()
//	}
//
// Shared Counters and Flags:
//
//	var processed lockfree.Counter
//	var stop lockfree.Flag
//
//	processed.FetchAdd(1, lockfree.Relaxed)  // statistics only
//	stop.Store(true, lockfree.Release)       // publishes prior writes
//	if stop.Load(lockfree.Acquire) { ... }   // observes them
//
// # Memory Ordering
//
// Enqueue publishes the element with a Release store and Dequeue reads it
// after an Acquire load, so the consumer always observes a fully written
// element. Cell operations use the [Ordering] passed at the call site.
// Read-modify-writes accept every ordering; for a plain load or store, an
// ordering it cannot carry (for example a Release load) is promoted to the
// nearest ordering that is never weaker.
//
// # Memory Reclamation
//
// Queue nodes live in a per-queue arena and are addressed by slot, not by
// Go pointer. Every compare-and-swapped location holds a tagged reference
// whose generation advances on each successful swap, so a CAS armed with a
// stale reference fails even after its slot has been recycled (ABA).
//
// Dequeued nodes are not reused immediately. They are retired into a limbo
// list stamped with the current epoch and move to the free list only once
// the global epoch has advanced twice, which proves that no operation
// that could still reach them is in flight.
//
// # Error Handling
//
// Dequeue returns [ErrWouldBlock] when no element is visible. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
// The queues are unbounded, so there is no "full" outcome; Enqueue only
// fails with [ErrExhausted] when a queue's arena has used its whole index
// space.
//
//	lockfree.IsWouldBlock(err)  // true if queue empty
//	lockfree.IsSemantic(err)    // true if control flow signal
//	lockfree.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// Internal compare-and-swap losses are retried silently and never surface.
//
// # Thread Safety
//
//   - MPSC: multiple producer goroutines, one consumer goroutine
//   - MPMC: multiple producer and consumer goroutines
//
// The MPSC consumer constraint is not checked in normal builds: two
// concurrent consumers can receive the same element twice. Claim the
// consumer side with [MPSC.Consumer] to make ownership explicit. Building
// with -tags lockfree_debug turns on invariant assertions, including a
// panic when two goroutines dequeue from an MPSC queue at the same time.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomic memory orderings on a variable other than the
// one being accessed. Queue payloads are plain fields ordered by the
// node links, so the detector may report false positives.
//
// Tests incompatible with race detection are skipped when [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lockfree
