// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sugawarayuuta/sonnet"

	"code.hybscloud.com/lockfree"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario   string        `json:"scenario"`
	Queue      string        `json:"queue"`
	Ops        uint64        `json:"ops"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	OpsPerSec  float64       `json:"ops_per_sec"`
	Pushed     uint64        `json:"pushed"`
	Popped     uint64        `json:"popped"`
	ChecksumOK bool          `json:"checksum_ok"`
	Error      string        `json:"error,omitempty"`
}

// Failed reports whether the scenario found a violation or did not finish.
func (r *Result) Failed() bool {
	return r.Error != ""
}

func (r *Result) fail(err error) {
	if err != nil && r.Error == "" {
		r.Error = err.Error()
	}
}

func (r *Result) finish(start time.Time) {
	r.Elapsed = time.Since(start)
	if s := r.Elapsed.Seconds(); s > 0 {
		r.OpsPerSec = float64(r.Ops) / s
	}
}

// Report is the JSON document written by the CLI.
type Report struct {
	Config  *Config  `json:"config"`
	Results []Result `json:"results"`
	Failed  int      `json:"failed"`
}

// MarshalReport encodes results and the configuration that produced them.
func MarshalReport(cfg *Config, results []Result) ([]byte, error) {
	rep := Report{Config: cfg, Results: results}
	for i := range results {
		if results[i].Failed() {
			rep.Failed++
		}
	}
	return sonnet.Marshal(&rep)
}

// multiset is an order-independent fingerprint of a bag of values: the
// wrapping sum of each value's xxhash plus the element count. Two bags
// with equal fingerprints hold the same values with overwhelming
// probability, regardless of the order they were added in.
//
// Safe for concurrent use.
type multiset struct {
	sum lockfree.Counter
	n   lockfree.Counter
}

func fingerprint(v uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return xxhash.Sum64(b[:])
}

func (m *multiset) add(v uint64) {
	m.sum.FetchAdd(fingerprint(v), lockfree.Relaxed)
	m.n.FetchAdd(1, lockfree.Relaxed)
}

// merge folds a goroutine-local partial sum into m.
func (m *multiset) merge(sum, n uint64) {
	m.sum.FetchAdd(sum, lockfree.Relaxed)
	m.n.FetchAdd(n, lockfree.Relaxed)
}

func (m *multiset) count() uint64 {
	return m.n.Load(lockfree.Acquire)
}

func (m *multiset) equal(o *multiset) bool {
	return m.sum.Load(lockfree.SeqCst) == o.sum.Load(lockfree.SeqCst) &&
		m.n.Load(lockfree.SeqCst) == o.n.Load(lockfree.SeqCst)
}
