package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/benchmarks"
)

func newBenchCommand() *cobra.Command {
	var (
		f      simFlags
		asJSON bool
		only   []string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in microbenchmarks and print their timing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}

			results, err := benchmarks.RunAll(selectBenchmarks(only), cfg)
			if err != nil {
				return err
			}

			if asJSON {
				return benchmarks.WriteJSON(cmd.OutOrStdout(), results)
			}
			return benchmarks.WriteTable(cmd.OutOrStdout(), results)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the results as JSON")
	cmd.Flags().StringSliceVar(&only, "only", nil, "run only these benchmarks")

	return cmd
}

func selectBenchmarks(names []string) []benchmarks.Benchmark {
	all := benchmarks.Microbenchmarks()
	if len(names) == 0 {
		return all
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var selected []benchmarks.Benchmark
	for _, b := range all {
		if want[b.Name] {
			selected = append(selected, b)
		}
	}
	return selected
}
