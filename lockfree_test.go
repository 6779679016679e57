// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Lock-free algorithm tests excluded from race detection.
//
// Go's race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomic memory orderings (acquire-release semantics).
//
// These tests exercise queue algorithms that publish plain payload fields
// through Release stores on node links. The algorithms are correct, but the
// race detector reports false positives because it cannot track the
// synchronization provided by atomic operations on separate variables.

package lockfree_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree"
)

// =============================================================================
// High-Contention Stress Tests (Weak Memory Model Verification)
// =============================================================================

func startStressWatchdog(
	done chan struct{},
	closeOnce *sync.Once,
	timedOut *atomix.Bool,
	produced *atomix.Int64,
	consumed *atomix.Int64,
	totalItems int64,
) {
	const (
		stressTick      = 20 * time.Millisecond
		progressTimeout = 10 * time.Second
	)

	go func() {
		ticker := time.NewTicker(stressTick)
		defer ticker.Stop()

		lastProduced := produced.Load()
		lastConsumed := consumed.Load()
		lastProgress := time.Now()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				currentProduced := produced.Load()
				currentConsumed := consumed.Load()
				if currentProduced != lastProduced || currentConsumed != lastConsumed {
					lastProduced = currentProduced
					lastConsumed = currentConsumed
					lastProgress = time.Now()
					continue
				}

				if currentConsumed < totalItems && time.Since(lastProgress) >= progressTimeout {
					timedOut.Store(true)
					closeOnce.Do(func() { close(done) })
					return
				}
			}
		}
	}()
}

// runHighContention drives numP producers and numC consumers through q and
// checks exact-once delivery. Values are indexes into a seen array.
//
// Key correctness properties:
//   - Uses iox.Backoff for external wait semantics
//   - Zero tolerance for missing or duplicate items
//   - Must finish within the overall deadline
func runHighContention(t *testing.T, q lockfree.Queue[int], numP, numC, perP int, deadline time.Duration) {
	t.Helper()
	totalItems := numP * perP
	seen := make([]atomix.Int32, totalItems)

	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	done := make(chan struct{})
	var closeOnce sync.Once
	startStressWatchdog(done, &closeOnce, &timedOut, &produced, &consumed, int64(totalItems))
	defer closeOnce.Do(func() { close(done) })

	start := time.Now()
	var wg sync.WaitGroup
	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perP {
				v := id*perP + i
				if err := q.Enqueue(&v); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
				produced.Add(1)
			}
		}(p)
	}

	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(totalItems) {
				select {
				case <-done:
					return
				default:
				}
				v, err := q.Dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if v < 0 || v >= totalItems {
					t.Errorf("value out of range: %d", v)
					continue
				}
				seen[v].Add(1)
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	if timedOut.Load() {
		t.Fatalf("no progress for 10s: produced=%d consumed=%d/%d", produced.Load(), consumed.Load(), totalItems)
	}
	var missing, duplicates int
	for i := range totalItems {
		switch c := seen[i].Load(); {
		case c == 0:
			missing++
		case c > 1:
			duplicates++
		}
	}
	if missing > 0 || duplicates > 0 {
		t.Fatalf("missing=%d duplicates=%d of %d", missing, duplicates, totalItems)
	}
	if elapsed > deadline {
		t.Fatalf("took %v, want < %v", elapsed, deadline)
	}
	t.Logf("%d producers x %d items, %d consumers: %v", numP, perP, numC, elapsed)
}

// TestHighContentionStress verifies queue correctness under extreme
// contention: 16 producers x 10000 items each must all arrive within 30s.
func TestHighContentionStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skip: stress test")
	}
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	runHighContention(t, lockfree.NewMPMC[int](), 16, 16, 10_000, 30*time.Second)
}

// TestHighContentionStressMPSC is the MPSC variant with a single consumer.
func TestHighContentionStressMPSC(t *testing.T) {
	if testing.Short() {
		t.Skip("skip: stress test")
	}
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	runHighContention(t, lockfree.NewMPSC[int](), 16, 1, 10_000, 30*time.Second)
}

// TestMediumContention runs a balanced workload on a small first segment
// so the arena grows and recycles under load.
func TestMediumContention(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	q := lockfree.BuildMPMC[int](lockfree.New().Reserve(4))
	runHighContention(t, q, 4, 4, 2_000, 30*time.Second)

	fp := lockfree.FootprintMPMC(q)
	if uint64(fp.Limbo+fp.Free)+1 != fp.Slots {
		t.Fatalf("accounting after drain: limbo %d + free %d + sentinel != slots %d", fp.Limbo, fp.Free, fp.Slots)
	}
}

// =============================================================================
// Graceful Shutdown
// =============================================================================

// TestDrainGracefulShutdown stops producers with a Flag and then drains
// whatever is left. Every produced element must be received exactly once.
func TestDrainGracefulShutdown(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	for _, k := range queueKinds {
		t.Run(k.name, func(t *testing.T) {
			q := k.make()
			var stop lockfree.Flag
			var produced, received lockfree.Counter

			const numP = 4
			var wg sync.WaitGroup
			for p := range numP {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for i := 0; i < 100_000 && !stop.Load(lockfree.Acquire); i++ {
						v := id
						q.Enqueue(&v)
						produced.Increment()
					}
				}(p)
			}

			time.Sleep(20 * time.Millisecond)
			stop.Store(true, lockfree.Release)
			wg.Wait()

			for {
				if _, err := q.Dequeue(); err != nil {
					break
				}
				received.Increment()
			}
			if !q.IsEmpty() {
				t.Fatal("IsEmpty after drain: got false, want true")
			}
			if p, r := produced.Load(lockfree.SeqCst), received.Load(lockfree.SeqCst); p != r {
				t.Fatalf("produced %d, received %d", p, r)
			}
		})
	}
}
