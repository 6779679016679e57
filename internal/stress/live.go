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

// runLive runs producers and consumers concurrently. Producers raise a
// stop flag once every value is enqueued; consumers exit on the first
// empty Dequeue after they have observed it.
func runLive(ctx context.Context, e *env, res *Result) error {
	cfg := e.cfg
	q := cfg.newQueue()
	var pushed, popped multiset
	var stop lockfree.Flag
	var errs errOnce
	seen := newLedger(cfg.Producers, cfg.Items)

	var consumers sync.WaitGroup
	for c := range cfg.Consumers {
		consumers.Add(1)
		go func(id int) {
			defer consumers.Done()
			e.pinned(e.consumerCPU(id), func() {
				errs.set(consumeUntilStopped(ctx, q, &stop, cfg.Producers, func(v uint64) error {
					popped.add(v)
					return seen.record(v)
				}))
			})
		}(c)
	}

	var producers sync.WaitGroup
	for p := range cfg.Producers {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			errs.set(produce(ctx, q, id, cfg.Items, &pushed))
		}(p)
	}
	producers.Wait()
	stop.Store(true, lockfree.Release)
	consumers.Wait()

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

// consumeUntilStopped dequeues until stop is set and the queue has been
// seen empty afterwards. Every value is checked for per-producer order.
func consumeUntilStopped(ctx context.Context, q lockfree.Consumer[uint64], stop *lockfree.Flag, producers int, fn func(v uint64) error) error {
	order := newOrderCheck(producers)
	backoff := iox.Backoff{}
	stopping := false
	for {
		v, err := q.Dequeue()
		if err == nil {
			backoff.Reset()
			if err := order.observe(v); err != nil {
				return err
			}
			if err := fn(v); err != nil {
				return err
			}
			continue
		}
		if !lockfree.IsWouldBlock(err) {
			return err
		}
		if stopping {
			return nil
		}
		// Everything enqueued before the flag is visible by the next pass.
		if stop.Load(lockfree.Acquire) {
			stopping = true
			continue
		}
		if err := waitEmpty(ctx, &backoff); err != nil {
			return err
		}
	}
}
