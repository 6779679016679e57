// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"code.hybscloud.com/lockfree/internal/log"
	"code.hybscloud.com/lockfree/internal/stress"
)

// runFlags holds the flag values of the run command. Flags override the
// configuration file only when set explicitly.
type runFlags struct {
	queue     string
	scenarios []string
	producers int
	consumers int
	items     int
	ops       int
	budget    time.Duration
	pinCPU    int
	reserve   int
	seed      uint64
	logLevel  string
	logJson   bool
	json      bool
}

var flags runFlags

var CmdLfstress = &cobra.Command{
	Use:   "lfstress",
	Short: "Stress harness for the lock-free queues",
	Long: `Stress harness for the lock-free queues.

Runs concurrent workloads against the MPSC and MPMC queues and checks
exact-once delivery, per-producer FIFO order and agreement with a
sequential model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var CmdRun = &cobra.Command{
	Use:   "run [CONFIG-FILE]",
	Short: "Run stress scenarios",
	Long: `Run stress scenarios against one queue kind.

Settings come from the optional YAML configuration file, then from
flags given on the command line. The exit status is 1 if any scenario
fails.`,
	Args: cobra.MaximumNArgs(1),
	Example: `  lfstress run --queue mpsc --scenario drain,live --producers 16 --items 10000
  lfstress run stress.yml --json > report.json`,
	RunE: run,
}

var CmdList = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		table := newTable(cmd.OutOrStdout(), "SCENARIO", "DESCRIPTION")
		for _, name := range stress.Names() {
			table.Append([]string{name, stress.Describe(name)})
		}
		table.Render()
	},
}

func init() {
	cobra.EnableCommandSorting = false
	CmdLfstress.CompletionOptions.HiddenDefaultCmd = true
	CmdLfstress.AddCommand(CmdRun)
	CmdLfstress.AddCommand(CmdList)

	def := stress.DefaultConfig()
	f := CmdRun.Flags()
	f.StringVar(&flags.queue, "queue", def.Queue, "queue kind: mpsc or mpmc")
	f.StringSliceVar(&flags.scenarios, "scenario", def.Scenarios, "scenarios to run, comma separated")
	f.IntVarP(&flags.producers, "producers", "p", def.Producers, "producer goroutines")
	f.IntVarP(&flags.consumers, "consumers", "c", def.Consumers, "consumer goroutines (mpmc only)")
	f.IntVarP(&flags.items, "items", "n", def.Items, "values pushed by each producer")
	f.IntVar(&flags.ops, "ops", def.Ops, "operations per goroutine in mixed, recycles in aba, stream length in model")
	f.DurationVar(&flags.budget, "budget", def.Budget, "time budget for each scenario")
	f.IntVar(&flags.pinCPU, "pin-cpu", def.PinCPU, "pin consumer threads starting at this CPU, -1 to disable")
	f.IntVar(&flags.reserve, "reserve", def.Reserve, "first arena segment size hint, 0 for the default")
	f.Uint64Var(&flags.seed, "seed", def.Seed, "seed for the model scenario")
	f.StringVar(&flags.logLevel, "log-level", "INFO", "log level: TRACE, DEBUG, INFO, WARN or ERROR")
	f.BoolVar(&flags.logJson, "log-json", false, "write logs as JSON")
	f.BoolVar(&flags.json, "json", false, "write the report to stdout as JSON")
}

func run(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	logger := log.NewText(cmd.ErrOrStderr(), level)
	if flags.logJson {
		logger = log.NewJson(cmd.ErrOrStderr(), level)
	}

	cfg := stress.DefaultConfig()
	if len(args) == 1 {
		if cfg, err = stress.ReadConfig(args[0]); err != nil {
			return err
		}
	}
	applyFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := stress.Run(ctx, cfg, logger)
	if results != nil {
		if err := report(cmd.OutOrStdout(), cfg, results); err != nil {
			return err
		}
	}
	return runErr
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *stress.Config) {
	set := cmd.Flags().Changed
	if set("queue") {
		cfg.Queue = strings.ToLower(flags.queue)
	}
	if set("scenario") {
		cfg.Scenarios = flags.scenarios
	}
	if set("producers") {
		cfg.Producers = flags.producers
	}
	if set("consumers") {
		cfg.Consumers = flags.consumers
	}
	if set("items") {
		cfg.Items = flags.items
	}
	if set("ops") {
		cfg.Ops = flags.ops
	}
	if set("budget") {
		cfg.Budget = flags.budget
	}
	if set("pin-cpu") {
		cfg.PinCPU = flags.pinCPU
	}
	if set("reserve") {
		cfg.Reserve = flags.reserve
	}
	if set("seed") {
		cfg.Seed = flags.seed
	}
}

func report(w io.Writer, cfg *stress.Config, results []stress.Result) error {
	if flags.json {
		b, err := stress.MarshalReport(cfg, results)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	table := newTable(w, "SCENARIO", "QUEUE", "OPS", "ELAPSED", "OPS/S", "PUSHED", "POPPED", "CHECKSUM", "RESULT")
	for _, r := range results {
		status := "ok"
		if r.Failed() {
			status = r.Error
		}
		table.Append([]string{
			r.Scenario,
			r.Queue,
			strconv.FormatUint(r.Ops, 10),
			r.Elapsed.Round(time.Microsecond).String(),
			strconv.FormatFloat(r.OpsPerSec, 'f', 0, 64),
			strconv.FormatUint(r.Pushed, 10),
			strconv.FormatUint(r.Popped, 10),
			strconv.FormatBool(r.ChecksumOK),
			status,
		})
	}
	table.Render()
	return nil
}

// newTable returns a borderless, left-aligned table with the given header.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	return table
}
