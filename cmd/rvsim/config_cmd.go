package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/config"
)

func newConfigCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "config <file>",
		Short: "Write a configuration file (.json, .yaml or .yml) with every setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if from != "" {
				var err error
				if cfg, err = config.Load(from); err != nil {
					return err
				}
			}

			if err := cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start from this configuration instead of the defaults")

	return cmd
}
