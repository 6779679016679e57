// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree"
	"code.hybscloud.com/lockfree/internal/log"
)

// Violations reported by scenarios.
var (
	ErrDuplicate = errors.New("stress: value dequeued more than once")
	ErrLost      = errors.New("stress: value never dequeued")
	ErrForeign   = errors.New("stress: dequeued a value that was never enqueued")
	ErrOrder     = errors.New("stress: per-producer FIFO order violated")
	ErrChecksum  = errors.New("stress: enqueued and dequeued multisets differ")
	ErrNotEmpty  = errors.New("stress: queue not empty after drain")
	ErrMismatch  = errors.New("stress: queue diverged from sequential model")
	ErrBudget    = errors.New("stress: scenario exceeded its time budget")
	ErrFailed    = errors.New("stress: scenarios failed")
)

// scenarioFunc runs one scenario and fills in res. A non-nil error marks
// the scenario failed.
type scenarioFunc func(ctx context.Context, env *env, res *Result) error

type scenario struct {
	name string
	help string
	run  scenarioFunc
}

var scenarios = []scenario{
	{"drain", "producers fill the queue, then one goroutine drains and verifies it", runDrain},
	{"live", "producers and consumers run together until a stop flag", runLive},
	{"mixed", "every goroutine interleaves pushes and pops under a time budget", runMixed},
	{"aba", "recyclers pop and re-push while producers add distinct values", runABA},
	{"model", "a seeded op stream is checked against a sequential queue", runModel},
}

// Names lists the available scenarios in their default order.
func Names() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.name
	}
	return names
}

// Describe returns the one-line description of a scenario.
func Describe(name string) string {
	for _, s := range scenarios {
		if s.name == name {
			return s.help
		}
	}
	return ""
}

func lookup(name string) (scenarioFunc, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s.run, true
		}
	}
	return nil, false
}

// env is shared by the scenarios of one run.
type env struct {
	cfg *Config
	log *slog.Logger
}

// encode packs a producer id and sequence number into one value.
func encode(producer, seq int) uint64 {
	return uint64(producer)<<32 | uint64(seq)
}

func decode(v uint64) (producer, seq int) {
	return int(v >> 32), int(v & (1<<32 - 1))
}

// ledger records how often each (producer, seq) value was dequeued.
type ledger struct {
	items int
	seen  []lockfree.Counter
}

func newLedger(producers, items int) *ledger {
	return &ledger{items: items, seen: make([]lockfree.Counter, producers*items)}
}

// record notes one dequeue of v. It fails on values outside the ledger.
func (l *ledger) record(v uint64) error {
	p, s := decode(v)
	if s < 0 || s >= l.items || p*l.items+s >= len(l.seen) {
		return fmt.Errorf("%w: %#x", ErrForeign, v)
	}
	l.seen[p*l.items+s].FetchAdd(1, lockfree.Relaxed)
	return nil
}

// verify reports the first duplicated or missing value.
func (l *ledger) verify() error {
	for i := range l.seen {
		switch n := l.seen[i].Load(lockfree.Acquire); {
		case n > 1:
			return fmt.Errorf("%w: producer %d seq %d seen %d times", ErrDuplicate, i/l.items, i%l.items, n)
		case n == 0:
			return fmt.Errorf("%w: producer %d seq %d", ErrLost, i/l.items, i%l.items)
		}
	}
	return nil
}

// orderCheck tracks the last sequence seen from each producer by one
// consumer.
type orderCheck []int

func newOrderCheck(producers int) orderCheck {
	o := make(orderCheck, producers)
	for i := range o {
		o[i] = -1
	}
	return o
}

func (o orderCheck) observe(v uint64) error {
	p, s := decode(v)
	if p >= len(o) {
		return nil
	}
	if s <= o[p] {
		return fmt.Errorf("%w: producer %d seq %d after %d", ErrOrder, p, s, o[p])
	}
	o[p] = s
	return nil
}

// errOnce keeps the first error reported by any goroutine.
type errOnce struct {
	once sync.Once
	err  error
}

func (e *errOnce) set(err error) {
	if err != nil {
		e.once.Do(func() { e.err = err })
	}
}

// produce pushes items values for producer id, folding them into pushed.
func produce(ctx context.Context, q lockfree.Producer[uint64], id, items int, pushed *multiset) error {
	var sum uint64
	for i := range items {
		if i&1023 == 0 && ctx.Err() != nil {
			pushed.merge(sum, uint64(i))
			return ctx.Err()
		}
		v := encode(id, i)
		if err := q.Enqueue(&v); err != nil {
			pushed.merge(sum, uint64(i))
			return fmt.Errorf("producer %d: %w", id, err)
		}
		sum += fingerprint(v)
	}
	pushed.merge(sum, uint64(items))
	return nil
}

// drainAll pops until the queue reports empty, passing each value to fn.
func drainAll(q lockfree.Consumer[uint64], fn func(v uint64) error) error {
	for {
		v, err := q.Dequeue()
		if lockfree.IsWouldBlock(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// pinned runs fn on a fresh goroutine pinned to cpu and waits for it.
func (e *env) pinned(cpu int, fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := pinThread(cpu); err != nil {
			e.log.Warn("cpu pinning failed", "cpu", cpu, "err", err)
		} else if cpu >= 0 {
			log.Trace(e.log, "consumer pinned", "cpu", cpu)
		}
		fn()
	}()
	<-done
}

// consumerCPU returns the CPU for consumer i, or -1 when pinning is off.
func (e *env) consumerCPU(i int) int {
	if e.cfg.PinCPU < 0 {
		return -1
	}
	return e.cfg.PinCPU + i
}

// waitEmpty backs off once, or returns ctx's error if it has ended.
func waitEmpty(ctx context.Context, b *iox.Backoff) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Wait()
	return nil
}
