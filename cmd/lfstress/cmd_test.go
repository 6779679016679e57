// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/lockfree/internal/stress"
)

func TestApplyFlags(t *testing.T) {
	flags = runFlags{}
	require.NoError(t, CmdRun.Flags().Parse([]string{
		"--queue", "MPSC", "--scenario", "drain,model", "--producers", "16", "--budget", "5s",
	}))

	cfg := stress.DefaultConfig()
	applyFlags(CmdRun, cfg)
	require.Equal(t, stress.QueueMPSC, cfg.Queue)
	require.Equal(t, []string{"drain", "model"}, cfg.Scenarios)
	require.Equal(t, 16, cfg.Producers)
	require.Equal(t, 5*time.Second, cfg.Budget)
	// Untouched flags leave the configuration alone.
	require.Equal(t, stress.DefaultConfig().Items, cfg.Items)
}

func TestListCommand(t *testing.T) {
	var out bytes.Buffer
	CmdList.SetOut(&out)
	CmdList.Run(CmdList, nil)
	require.Contains(t, out.String(), "DESCRIPTION")
	for _, name := range stress.Names() {
		require.Contains(t, out.String(), name)
		require.Contains(t, out.String(), stress.Describe(name))
	}
}

func TestReportTable(t *testing.T) {
	flags = runFlags{}
	var out bytes.Buffer
	results := []stress.Result{
		{Scenario: "drain", Queue: stress.QueueMPMC, Ops: 8, ChecksumOK: true},
		{Scenario: "mixed", Queue: stress.QueueMPMC, Error: "budget"},
	}
	require.NoError(t, report(&out, stress.DefaultConfig(), results))
	var lines []string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	require.Len(t, lines, 3)
	// Headers are printed as given, not reformatted.
	require.Contains(t, lines[0], "OPS/S")
	require.Contains(t, lines[0], "CHECKSUM")
	require.Contains(t, lines[1], "drain")
	require.Contains(t, lines[1], "true")
	require.Contains(t, lines[1], "ok")
	require.Contains(t, lines[2], "mixed")
	require.Contains(t, lines[2], "budget")
}
