// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress drives the lock-free queues through concurrent workloads
// and checks the results against exact-once, per-producer FIFO and
// sequential-model properties.
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Run validates cfg and runs each selected scenario in order, each under
// its own Budget deadline. It returns one Result per scenario started.
//
// The error is non-nil when the configuration is invalid, when any
// scenario failed (wrapping ErrFailed), or when ctx ended early.
func Run(ctx context.Context, cfg *Config, logger *slog.Logger) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	e := &env{cfg: cfg, log: logger}

	results := make([]Result, 0, len(cfg.Scenarios))
	failed := 0
	for _, name := range cfg.Scenarios {
		run, _ := lookup(name)
		res := Result{Scenario: name, Queue: cfg.Queue}
		logger.Info("scenario start", "scenario", name, "queue", cfg.Queue,
			"producers", cfg.Producers, "consumers", cfg.Consumers)

		sctx, cancel := context.WithTimeout(ctx, cfg.Budget)
		start := time.Now()
		err := run(sctx, e, &res)
		res.finish(start)
		cancel()

		if errors.Is(err, context.DeadlineExceeded) || (err == nil && res.Elapsed > cfg.Budget) {
			err = fmt.Errorf("%w (%v)", ErrBudget, cfg.Budget)
		}
		res.fail(err)
		results = append(results, res)

		if res.Failed() {
			failed++
			logger.Error("scenario failed", "scenario", name, "elapsed", res.Elapsed, "err", res.Error)
		} else {
			logger.Info("scenario passed", "scenario", name, "elapsed", res.Elapsed,
				"ops", res.Ops, "ops_per_sec", int64(res.OpsPerSec))
		}

		if err := ctx.Err(); err != nil {
			return results, err
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrFailed, failed, len(results))
	}
	return results, nil
}
