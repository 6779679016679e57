// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/eapache/queue"

	"code.hybscloud.com/lockfree"
)

// pushPercent is the share of pushes in the model op stream. Slightly
// above half so the queue spends most of the run non-empty.
const pushPercent = 55

// runModel applies a seeded stream of Ops operations to the queue and to
// a sequential ring buffer, failing on the first observable difference.
func runModel(ctx context.Context, e *env, res *Result) error {
	cfg := e.cfg
	q := cfg.newQueue()
	oracle := queue.New()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	res.ChecksumOK = true
	for step := range cfg.Ops {
		if step&4095 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		res.Ops++
		if err := modelStep(q, oracle, rng, res); err != nil {
			res.ChecksumOK = false
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	return nil
}

// modelStep performs one random operation on both queues and compares
// the outcomes.
func modelStep(q lockfree.Queue[uint64], oracle *queue.Queue, rng *rand.Rand, res *Result) error {
	if rng.IntN(100) < pushPercent {
		v := rng.Uint64()
		if err := q.Enqueue(&v); err != nil {
			return err
		}
		oracle.Add(v)
		res.Pushed++
	} else {
		got, err := q.Dequeue()
		if oracle.Length() == 0 {
			if !lockfree.IsWouldBlock(err) {
				return fmt.Errorf("%w: pop on empty returned (%#x, %v)", ErrMismatch, got, err)
			}
		} else {
			want := oracle.Remove().(uint64)
			if err != nil || got != want {
				return fmt.Errorf("%w: pop returned (%#x, %v), want %#x", ErrMismatch, got, err, want)
			}
			res.Popped++
		}
	}
	if empty := oracle.Length() == 0; q.IsEmpty() != empty {
		return fmt.Errorf("%w: IsEmpty %v, model length %d", ErrMismatch, !empty, oracle.Length())
	}
	return nil
}
