package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

const defaultDumpFile = "dump.txt"

type runFlags struct {
	simFlags

	verbose     bool
	singleStep  bool
	dumpHistory bool
	dumpFile    string
	tree        bool
	report      string
}

func newRunCommand(stdin io.Reader) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Simulate a program (RV32 ELF or raw binary) cycle by cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = f.verbose
			}
			if cmd.Flags().Changed("single-step") {
				cfg.SingleStep = f.singleStep
			}
			if cmd.Flags().Changed("dump-history") {
				cfg.DumpHistory = f.dumpHistory
			}

			prog, err := loadProgram(args[0], cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in, err := newInput(stdin, out, cfg.SingleStep)
			if err != nil {
				return err
			}
			defer in.Close()

			opts := []core.Option{core.WithStdin(in.Reader), core.WithStdout(out)}
			if cfg.Verbose {
				opts = append(opts, core.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
					&slog.HandlerOptions{Level: slog.LevelDebug}))))
			}

			c, err := core.New(cfg, prog, opts...)
			if err != nil {
				return err
			}

			var step stepper
			if cfg.SingleStep {
				step = newConsole(in, out, f.dumpFile)
			}

			return simulate(c, cfg, &f, out, step)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print the CPU state every cycle and trace the pipeline on stderr")
	cmd.Flags().BoolVarP(&f.singleStep, "single-step", "s", false, "pause after every cycle")
	cmd.Flags().BoolVar(&f.dumpHistory, "dump-history", false, "write the execution history and memory on exit")
	cmd.Flags().StringVar(&f.dumpFile, "dump-file", defaultDumpFile, "where dumps are written")
	cmd.Flags().BoolVar(&f.tree, "tree", false, "print the statistics as a tree")
	cmd.Flags().StringVar(&f.report, "report", "", "write an HTML statistics report to this file")

	return cmd
}

// simulate runs c to completion. A fatal error always produces a dump.
func simulate(c *core.Core, cfg *config.Config, f *runFlags, out io.Writer, step stepper) error {
	var ticks uint64
	for !c.Halted() {
		if cfg.MaxCycles > 0 && ticks >= cfg.MaxCycles {
			return fmt.Errorf("%w after %d cycles", core.ErrCycleLimit, c.Stats().Cycles)
		}

		if err := c.Tick(); err != nil {
			if dumpErr := c.DumpFile(f.dumpFile); dumpErr != nil {
				return errors.Join(err, dumpErr)
			}
			fmt.Fprintf(out, "Execution history dumped to %s\n", f.dumpFile)
			return err
		}
		ticks++

		if cfg.Verbose {
			if err := printCycle(out, c); err != nil {
				return err
			}
		}

		if step != nil {
			if err := step.Step(c); err != nil {
				if !errors.Is(err, io.EOF) {
					return err
				}
				step = nil
			}
		}
	}

	if cfg.DumpHistory {
		if err := c.DumpFile(f.dumpFile); err != nil {
			return err
		}
	}

	stats := c.Stats()
	strategy := c.Pipeline.Predictor().StrategyName()
	if err := pipeline.WriteStatistics(out, stats.Statistics, strategy); err != nil {
		return err
	}

	if f.tree {
		fmt.Fprintln(out, statsTree(stats, strategy).String())
	}

	if f.report != "" {
		if err := writeReportFile(f.report, stats, strategy); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", f.report)
	}

	return nil
}

func printCycle(out io.Writer, c *core.Core) error {
	p := c.Pipeline
	if err := pipeline.WriteState(out, p.PC(), p.RegFile().Snapshot()); err != nil {
		return err
	}

	state, remaining := p.Recovery()
	_, err := fmt.Fprintf(out, "Cycle %d: stall %d, %s (%d)\n",
		p.Stats().Cycles, p.LastStall(), state, remaining)
	return err
}
