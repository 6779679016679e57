// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"fmt"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree"
)

// markerBit tags the recycled values so they never collide with encoded
// producer values.
const markerBit = 1 << 63

// runABA keeps node slots churning: recycler goroutines pop whatever is
// at the head and push it straight back, while producers add distinct
// values. A stale reference accepted anywhere shows up as a lost,
// duplicated or foreign value in the final drain.
func runABA(ctx context.Context, e *env, res *Result) error {
	cfg := e.cfg
	q := cfg.newQueue()
	var pushed, popped multiset
	var ops lockfree.Counter
	var errs errOnce

	recyclers := cfg.Consumers
	markers := 2 * recyclers
	for i := range markers {
		v := markerBit | uint64(i)
		if err := q.Enqueue(&v); err != nil {
			return err
		}
		pushed.add(v)
	}

	var wg sync.WaitGroup
	for r := range recyclers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			n := cfg.Ops / recyclers
			if id < cfg.Ops%recyclers {
				n++
			}
			e.pinned(e.consumerCPU(id), func() {
				errs.set(recycle(ctx, q, n))
			})
			ops.FetchAdd(2*uint64(n), lockfree.Relaxed)
		}(r)
	}
	for p := range cfg.Producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errs.set(produce(ctx, q, id, cfg.Items, &pushed))
			ops.FetchAdd(uint64(cfg.Items), lockfree.Relaxed)
		}(p)
	}
	wg.Wait()

	seen := newLedger(cfg.Producers, cfg.Items)
	markerSeen := make([]int, markers)
	if errs.err == nil {
		errs.set(drainAll(q, func(v uint64) error {
			popped.add(v)
			if v&markerBit != 0 {
				i := int(v &^ markerBit)
				if i >= markers {
					return fmt.Errorf("%w: %#x", ErrForeign, v)
				}
				markerSeen[i]++
				return nil
			}
			return seen.record(v)
		}))
	}

	res.Pushed, res.Popped = pushed.count(), popped.count()
	res.Ops = ops.Load(lockfree.Acquire) + res.Popped
	res.ChecksumOK = pushed.equal(&popped)
	if errs.err != nil {
		return errs.err
	}
	for i, n := range markerSeen {
		switch {
		case n == 0:
			return fmt.Errorf("%w: recycled value %d", ErrLost, i)
		case n > 1:
			return fmt.Errorf("%w: recycled value %d seen %d times", ErrDuplicate, i, n)
		}
	}
	if err := seen.verify(); err != nil {
		return err
	}
	if !res.ChecksumOK {
		return fmt.Errorf("%w: pushed %d, popped %d", ErrChecksum, res.Pushed, res.Popped)
	}
	return nil
}

// recycle pops and re-pushes n values.
func recycle(ctx context.Context, q lockfree.Queue[uint64], n int) error {
	backoff := iox.Backoff{}
	for done := 0; done < n; {
		if done&1023 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		v, err := q.Dequeue()
		if err != nil {
			if !lockfree.IsWouldBlock(err) {
				return err
			}
			// Other recyclers hold every marker for a moment.
			if err := waitEmpty(ctx, &backoff); err != nil {
				return err
			}
			continue
		}
		backoff.Reset()
		if err := q.Enqueue(&v); err != nil {
			return err
		}
		done++
	}
	return nil
}
