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

// runMixed hammers the queue with interleaved operations.
//
// On mpmc every goroutine alternates push and pop, Ops operations each. On
// mpsc the producers push Ops values each and a single consumer pops
// until it has seen them all. Either way the leftovers are drained at the
// end and the pushed and popped multisets must match.
func runMixed(ctx context.Context, e *env, res *Result) error {
	cfg := e.cfg
	q := cfg.newQueue()
	var pushed, popped multiset
	var ops lockfree.Counter
	var errs errOnce

	var wg sync.WaitGroup
	if cfg.Queue == QueueMPMC {
		for g := range cfg.Producers + cfg.Consumers {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				errs.set(alternate(ctx, q, id, cfg.Ops, &pushed, &popped))
				ops.FetchAdd(uint64(cfg.Ops), lockfree.Relaxed)
			}(g)
		}
	} else {
		for p := range cfg.Producers {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				errs.set(produce(ctx, q, id, cfg.Ops, &pushed))
				ops.FetchAdd(uint64(cfg.Ops), lockfree.Relaxed)
			}(p)
		}
		total := uint64(cfg.Producers * cfg.Ops)
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.pinned(e.consumerCPU(0), func() {
				errs.set(consumeN(ctx, q, total, &popped))
			})
		}()
	}
	wg.Wait()

	if errs.err == nil {
		errs.set(drainAll(q, func(v uint64) error {
			popped.add(v)
			return nil
		}))
	}

	res.Pushed, res.Popped = pushed.count(), popped.count()
	res.Ops = ops.Load(lockfree.Acquire)
	res.ChecksumOK = pushed.equal(&popped)
	if errs.err != nil {
		return errs.err
	}
	if !res.ChecksumOK {
		return fmt.Errorf("%w: pushed %d, popped %d", ErrChecksum, res.Pushed, res.Popped)
	}
	if !q.IsEmpty() {
		return ErrNotEmpty
	}
	return nil
}

// alternate performs n operations on q, pushing on even steps and popping
// on odd ones. An empty pop is a valid outcome and is not retried.
func alternate(ctx context.Context, q lockfree.Queue[uint64], id, n int, pushed, popped *multiset) error {
	var pushSum, pushN, popSum, popN uint64
	defer func() {
		pushed.merge(pushSum, pushN)
		popped.merge(popSum, popN)
	}()
	for i := range n {
		if i&1023 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		if i&1 == 0 {
			v := encode(id, i)
			if err := q.Enqueue(&v); err != nil {
				return err
			}
			pushSum += fingerprint(v)
			pushN++
			continue
		}
		v, err := q.Dequeue()
		if err == nil {
			popSum += fingerprint(v)
			popN++
		} else if !lockfree.IsWouldBlock(err) {
			return err
		}
	}
	return nil
}

// consumeN pops until total values have been taken.
func consumeN(ctx context.Context, q lockfree.Consumer[uint64], total uint64, popped *multiset) error {
	var sum, n uint64
	defer func() { popped.merge(sum, n) }()
	backoff := iox.Backoff{}
	for n < total {
		v, err := q.Dequeue()
		if err == nil {
			backoff.Reset()
			sum += fingerprint(v)
			n++
			continue
		}
		if !lockfree.IsWouldBlock(err) {
			return err
		}
		if err := waitEmpty(ctx, &backoff); err != nil {
			return err
		}
	}
	return nil
}
