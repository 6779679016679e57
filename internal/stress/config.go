// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"code.hybscloud.com/lockfree"
)

// Queue kinds accepted by Config.Queue.
const (
	QueueMPSC = "mpsc"
	QueueMPMC = "mpmc"
)

// Config describes one harness run.
type Config struct {
	// Queue selects the algorithm under test: "mpsc" or "mpmc".
	Queue string `yaml:"queue" json:"queue"`
	// Scenarios lists the scenarios to run, in order.
	Scenarios []string `yaml:"scenarios" json:"scenarios"`
	// Producers is the number of producer goroutines.
	Producers int `yaml:"producers" json:"producers"`
	// Consumers is the number of consumer goroutines. Forced to 1 for mpsc.
	Consumers int `yaml:"consumers" json:"consumers"`
	// Items is the number of values each producer pushes in drain, live
	// and aba.
	Items int `yaml:"items" json:"items"`
	// Ops is the number of operations per goroutine in mixed, the number
	// of recycles in aba, and the stream length in model.
	Ops int `yaml:"ops" json:"ops"`
	// Budget bounds the wall time of each scenario.
	Budget time.Duration `yaml:"budget" json:"budget"`
	// PinCPU pins consumer goroutines' OS threads to this CPU. -1 disables.
	PinCPU int `yaml:"pin_cpu" json:"pin_cpu"`
	// Reserve sizes the first arena segment (0 keeps the default).
	Reserve int `yaml:"reserve" json:"reserve"`
	// Seed drives the model scenario's op stream.
	Seed uint64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Queue:     QueueMPMC,
		Scenarios: Names(),
		Producers: 4,
		Consumers: 4,
		Items:     1000,
		Ops:       10_000,
		Budget:    30 * time.Second,
		PinCPU:    -1,
		Seed:      1,
	}
}

// ReadConfig decodes a YAML file over the defaults. Unknown keys are
// rejected.
func ReadConfig(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("unable to open configuration file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration file: %w", err)
	}
	return cfg, nil
}

// Validate reports the first inconsistency in c and normalizes the
// consumer count for mpsc.
func (c *Config) Validate() error {
	switch c.Queue {
	case QueueMPSC:
		c.Consumers = 1
	case QueueMPMC:
	default:
		return fmt.Errorf("unknown queue %q (want %s or %s)", c.Queue, QueueMPSC, QueueMPMC)
	}
	if len(c.Scenarios) == 0 {
		return errors.New("no scenarios selected")
	}
	for _, s := range c.Scenarios {
		if !slices.Contains(Names(), s) {
			return fmt.Errorf("unknown scenario %q", s)
		}
	}
	if c.Producers < 1 || c.Consumers < 1 {
		return errors.New("producers and consumers must be >= 1")
	}
	if c.Items < 1 || c.Ops < 1 {
		return errors.New("items and ops must be >= 1")
	}
	if c.Producers >= 1<<16 || int64(c.Items) >= 1<<32 {
		return errors.New("producers must be < 65536 and items < 2^32")
	}
	if c.Budget <= 0 {
		return errors.New("budget must be positive")
	}
	if c.Reserve < 0 {
		return errors.New("reserve must be >= 0")
	}
	return nil
}

// newQueue builds the queue selected by c.
func (c *Config) newQueue() lockfree.Queue[uint64] {
	b := lockfree.New()
	if c.Queue == QueueMPSC {
		b.SingleConsumer()
	}
	if c.Reserve > 0 {
		b.Reserve(c.Reserve)
	}
	return lockfree.Build[uint64](b)
}
