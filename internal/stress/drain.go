// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"fmt"
	"sync"
)

// runDrain fills the queue from all producers, then drains it from a
// single goroutine and checks that every value came out exactly once.
func runDrain(ctx context.Context, e *env, res *Result) error {
	cfg := e.cfg
	q := cfg.newQueue()
	var pushed, popped multiset
	var errs errOnce

	var wg sync.WaitGroup
	for p := range cfg.Producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errs.set(produce(ctx, q, id, cfg.Items, &pushed))
		}(p)
	}
	wg.Wait()
	if errs.err != nil {
		return errs.err
	}

	seen := newLedger(cfg.Producers, cfg.Items)
	order := newOrderCheck(cfg.Producers)
	e.pinned(e.consumerCPU(0), func() {
		errs.set(drainAll(q, func(v uint64) error {
			popped.add(v)
			if err := seen.record(v); err != nil {
				return err
			}
			return order.observe(v)
		}))
	})

	res.Pushed, res.Popped = pushed.count(), popped.count()
	res.Ops = res.Pushed + res.Popped
	res.ChecksumOK = pushed.equal(&popped)
	if errs.err != nil {
		return errs.err
	}
	if err := seen.verify(); err != nil {
		return err
	}
	if !res.ChecksumOK {
		return fmt.Errorf("%w: pushed %d, popped %d", ErrChecksum, res.Pushed, res.Popped)
	}
	if !q.IsEmpty() {
		return ErrNotEmpty
	}
	return nil
}
