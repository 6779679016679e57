// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"code.hybscloud.com/lockfree"
	"code.hybscloud.com/lockfree/internal/log"
)

func smallConfig(queue string) *Config {
	cfg := DefaultConfig()
	cfg.Queue = queue
	cfg.Producers = 3
	cfg.Consumers = 2
	cfg.Items = 500
	cfg.Ops = 2000
	cfg.Reserve = 8
	cfg.Budget = 20 * time.Second
	return cfg
}

func TestRunAllScenarios(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	for _, queue := range []string{QueueMPSC, QueueMPMC} {
		t.Run(queue, func(t *testing.T) {
			cfg := smallConfig(queue)
			results, err := Run(context.Background(), cfg, log.Discard())
			require.NoError(t, err)
			require.Len(t, results, len(Names()))
			for _, r := range results {
				require.False(t, r.Failed(), "%s: %s", r.Scenario, r.Error)
				require.True(t, r.ChecksumOK, r.Scenario)
				require.Equal(t, queue, r.Queue)
				require.NotZero(t, r.Ops, r.Scenario)
			}
		})
	}
}

func TestRunDrainCounts(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	cfg := smallConfig(QueueMPSC)
	cfg.Scenarios = []string{"drain"}
	results, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	require.Equal(t, uint64(3*500), results[0].Pushed)
	require.Equal(t, uint64(3*500), results[0].Popped)
	require.Equal(t, 1, cfg.Consumers)
}

// TestRunPinned runs with consumer pinning on. A failed affinity call is
// only logged, so the run must pass either way.
func TestRunPinned(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	cfg := smallConfig(QueueMPSC)
	cfg.Scenarios = []string{"drain", "live"}
	cfg.PinCPU = 0
	results, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	for _, r := range results {
		require.False(t, r.Failed(), "%s: %s", r.Scenario, r.Error)
	}
}

func TestRunBudgetExceeded(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free payload handoff")
	}
	cfg := smallConfig(QueueMPMC)
	cfg.Scenarios = []string{"mixed"}
	cfg.Budget = time.Nanosecond
	results, err := Run(context.Background(), cfg, log.Discard())
	require.ErrorIs(t, err, ErrFailed)
	require.Len(t, results, 1)
	require.True(t, results[0].Failed())
	require.Contains(t, results[0].Error, ErrBudget.Error())
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := smallConfig("spsc")
	_, err := Run(context.Background(), cfg, log.Discard())
	require.Error(t, err)
}

func TestModelDeterministic(t *testing.T) {
	cfg := smallConfig(QueueMPMC)
	cfg.Scenarios = []string{"model"}
	cfg.Seed = 42

	first, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	require.Equal(t, first[0].Pushed, second[0].Pushed)
	require.Equal(t, first[0].Popped, second[0].Popped)
	require.Equal(t, uint64(cfg.Ops), first[0].Ops)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"UnknownQueue", func(c *Config) { c.Queue = "ring" }},
		{"NoScenarios", func(c *Config) { c.Scenarios = nil }},
		{"UnknownScenario", func(c *Config) { c.Scenarios = []string{"drain", "soak"} }},
		{"NoProducers", func(c *Config) { c.Producers = 0 }},
		{"NoItems", func(c *Config) { c.Items = 0 }},
		{"NoOps", func(c *Config) { c.Ops = -1 }},
		{"NoBudget", func(c *Config) { c.Budget = 0 }},
		{"NegativeReserve", func(c *Config) { c.Reserve = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	cfg.Queue = QueueMPSC
	cfg.Consumers = 8
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1, cfg.Consumers)
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stress.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
queue: mpsc
scenarios: [drain, aba]
producers: 16
items: 10000
budget: 45s
pin_cpu: 2
`), 0o644))

	cfg, err := ReadConfig(file)
	require.NoError(t, err)
	require.Equal(t, QueueMPSC, cfg.Queue)
	require.Equal(t, []string{"drain", "aba"}, cfg.Scenarios)
	require.Equal(t, 16, cfg.Producers)
	require.Equal(t, 10000, cfg.Items)
	require.Equal(t, 45*time.Second, cfg.Budget)
	require.Equal(t, 2, cfg.PinCPU)
	// Keys not in the file keep their defaults.
	require.Equal(t, DefaultConfig().Ops, cfg.Ops)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("queue: mpmc\nthreads: 4\n"), 0o644))
	_, err = ReadConfig(bad)
	require.Error(t, err)

	_, err = ReadConfig(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
}

func TestLedger(t *testing.T) {
	l := newLedger(2, 3)
	for p := range 2 {
		for s := range 3 {
			require.NoError(t, l.record(encode(p, s)))
		}
	}
	require.NoError(t, l.verify())

	require.NoError(t, l.record(encode(1, 2)))
	require.ErrorIs(t, l.verify(), ErrDuplicate)

	require.ErrorIs(t, newLedger(2, 3).verify(), ErrLost)
	require.ErrorIs(t, l.record(encode(0, 3)), ErrForeign)
	require.ErrorIs(t, l.record(encode(2, 0)), ErrForeign)
}

func TestOrderCheck(t *testing.T) {
	o := newOrderCheck(2)
	require.NoError(t, o.observe(encode(0, 0)))
	require.NoError(t, o.observe(encode(1, 5)))
	require.NoError(t, o.observe(encode(0, 7)))
	require.ErrorIs(t, o.observe(encode(0, 7)), ErrOrder)
	require.ErrorIs(t, o.observe(encode(1, 1)), ErrOrder)
}

func TestMultisetOrderIndependent(t *testing.T) {
	var a, b multiset
	for v := range uint64(100) {
		a.add(v)
		b.add(99 - v)
	}
	require.True(t, a.equal(&b))
	require.Equal(t, uint64(100), a.count())

	b.add(7)
	require.False(t, a.equal(&b))

	var c multiset
	var sum uint64
	for v := range uint64(100) {
		sum += fingerprint(v)
	}
	c.merge(sum, 100)
	require.True(t, a.equal(&c))
}

func TestMarshalReport(t *testing.T) {
	cfg := DefaultConfig()
	results := []Result{
		{Scenario: "drain", Queue: QueueMPMC, Ops: 10, ChecksumOK: true},
		{Scenario: "mixed", Queue: QueueMPMC, Error: ErrBudget.Error()},
	}
	b, err := MarshalReport(cfg, results)
	require.NoError(t, err)

	var rep struct {
		Config struct {
			Queue string `json:"queue"`
		} `json:"config"`
		Results []struct {
			Scenario string `json:"scenario"`
			Error    string `json:"error"`
		} `json:"results"`
		Failed int `json:"failed"`
	}
	require.NoError(t, sonnet.Unmarshal(b, &rep))
	require.Equal(t, QueueMPMC, rep.Config.Queue)
	require.Len(t, rep.Results, 2)
	require.Equal(t, "mixed", rep.Results[1].Scenario)
	require.Empty(t, rep.Results[0].Error)
	require.Equal(t, 1, rep.Failed)
}

func TestDescribe(t *testing.T) {
	for _, name := range Names() {
		require.NotEmpty(t, Describe(name), name)
	}
	require.Empty(t, Describe("soak"))
}
