package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
)

// ErrStateMismatch is returned by compare when the runs disagree.
var ErrStateMismatch = errors.New("final states differ")

// finalState is the architectural outcome of a run. Timing is left out so
// that runs with different pipelines can be compared.
type finalState struct {
	Error     string            `json:"error,omitempty"`
	Output    string            `json:"output"`
	Registers map[string]uint32 `json:"registers"`
	Memory    map[string]uint32 `json:"memory"`
}

type variant struct {
	name   string
	config *config.Config
}

type runResult struct {
	name  string
	stats core.Stats
	state finalState
}

func newCompareCommand() *cobra.Command {
	var (
		f          simFlags
		predictors []string
	)

	cmd := &cobra.Command{
		Use:   "compare <program>",
		Short: "Run a program with and without forwarding and diff the final states",
		Long: "Runs the program once with data forwarding and once without, or once per\n" +
			"--predictors entry, and reports any difference in registers, memory or\n" +
			"console output. The cycle counts of every run are printed for reference.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			cfg.HistoryLimit = 0

			prog, err := loadProgram(args[0], cfg)
			if err != nil {
				return err
			}

			return compare(cmd.OutOrStdout(), prog, variants(cfg, predictors))
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().StringSliceVar(&predictors, "predictors", nil,
		"compare these prediction strategies instead of forwarding on and off")

	return cmd
}

func variants(cfg *config.Config, predictors []string) []variant {
	var vs []variant

	if len(predictors) == 0 {
		for _, forwarding := range []bool{true, false} {
			c := cfg.Clone()
			c.DataForwarding = forwarding
			name := "forwarding"
			if !forwarding {
				name = "stalling"
			}
			vs = append(vs, variant{name: name, config: c})
		}
		return vs
	}

	for _, p := range predictors {
		c := cfg.Clone()
		c.Predictor = p
		vs = append(vs, variant{name: p, config: c})
	}
	return vs
}

func runVariant(prog *loader.Program, v variant) (runResult, error) {
	var out bytes.Buffer
	c, err := core.New(v.config, prog, core.WithStdin(bytes.NewReader(nil)), core.WithStdout(&out))
	if err != nil {
		return runResult{}, fmt.Errorf("%s: %w", v.name, err)
	}

	_, runErr := c.Run()
	c.Flush()

	state := finalState{
		Output:    out.String(),
		Registers: make(map[string]uint32, insts.NumRegs),
		Memory:    make(map[string]uint32),
	}
	if runErr != nil {
		state.Error = runErr.Error()
	}

	for i, val := range c.RegFile().Snapshot() {
		state.Registers[insts.Reg(i).String()] = val
	}

	memory := c.Memory()
	for _, base := range memory.Pages() {
		for off := uint32(0); off < emu.PageSize; off += 4 {
			w, _, err := memory.Read32(base + off)
			if err != nil || w == 0 {
				continue
			}
			state.Memory[fmt.Sprintf("0x%08x", base+off)] = w
		}
	}

	return runResult{name: v.name, stats: c.Stats(), state: state}, nil
}

// compare runs every variant and diffs each against the first.
func compare(out io.Writer, prog *loader.Program, vs []variant) error {
	results := make([]runResult, 0, len(vs))
	for _, v := range vs {
		r, err := runVariant(prog, v)
		if err != nil {
			return err
		}
		results = append(results, r)

		fmt.Fprintf(out, "%-12s instructions %d, cycles %d, CPI %.4f\n",
			r.name, r.stats.Instructions, r.stats.Cycles, r.stats.CPI())
	}

	base := results[0]
	baseJSON, err := json.Marshal(base.state)
	if err != nil {
		return err
	}

	mismatch := false
	for _, r := range results[1:] {
		otherJSON, err := json.Marshal(r.state)
		if err != nil {
			return err
		}

		diff, err := gojsondiff.New().Compare(baseJSON, otherJSON)
		if err != nil {
			return fmt.Errorf("failed to diff states: %w", err)
		}
		if !diff.Modified() {
			fmt.Fprintf(out, "%s and %s: identical final state\n", base.name, r.name)
			continue
		}

		mismatch = true
		var left interface{}
		_ = json.Unmarshal(baseJSON, &left)
		text, err := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
			ShowArrayIndex: true,
		}).Format(diff)
		if err != nil {
			return fmt.Errorf("failed to format diff: %w", err)
		}
		fmt.Fprintf(out, "%s and %s differ:\n%s\n", base.name, r.name, text)
	}

	if mismatch {
		return ErrStateMismatch
	}
	return nil
}
