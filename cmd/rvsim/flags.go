package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/loader"
)

// simFlags are the configuration overrides shared by run and compare.
type simFlags struct {
	configPath  string
	forwarding  bool
	predictor   string
	cache       bool
	maxCycles   uint64
	stackBase   uint32
	stackSize   uint32
	binaryBase  uint32
	historySize int
}

func (f *simFlags) register(fs *pflag.FlagSet) {
	d := config.Default()

	fs.StringVarP(&f.configPath, "config", "c", "", "configuration file (.json, .yaml or .yml)")
	fs.BoolVar(&f.forwarding, "forwarding", d.DataForwarding, "enable data forwarding")
	fs.StringVarP(&f.predictor, "predictor", "p", d.Predictor, "branch prediction strategy: AT, NT, BTFNT or BPB")
	fs.BoolVar(&f.cache, "cache", d.Cache.Enabled, "enable the data cache")
	fs.Uint64Var(&f.maxCycles, "max-cycles", d.MaxCycles, "stop after this many cycles (0 for no limit)")
	fs.Uint32Var(&f.stackBase, "stack-base", d.StackBase, "initial stack pointer")
	fs.Uint32Var(&f.stackSize, "stack-size", d.StackSize, "maximum stack size in bytes")
	fs.Uint32Var(&f.binaryBase, "binary-base", d.BinaryBase, "load address of a raw binary image")
	fs.IntVar(&f.historySize, "history", d.HistoryLimit, "execution history entries kept for dumps (0 disables)")
}

// load reads the configuration file, if any, and applies the flags that
// were set on the command line.
func (f *simFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("forwarding") {
		cfg.DataForwarding = f.forwarding
	}
	if fs.Changed("predictor") {
		cfg.Predictor = f.predictor
	}
	if fs.Changed("cache") {
		cfg.Cache.Enabled = f.cache
	}
	if fs.Changed("max-cycles") {
		cfg.MaxCycles = f.maxCycles
	}
	if fs.Changed("stack-base") {
		cfg.StackBase = f.stackBase
	}
	if fs.Changed("stack-size") {
		cfg.StackSize = f.stackSize
	}
	if fs.Changed("binary-base") {
		cfg.BinaryBase = f.binaryBase
	}
	if fs.Changed("history") {
		cfg.HistoryLimit = f.historySize
	}

	return cfg, cfg.Validate()
}

func loadProgram(path string, cfg *config.Config) (*loader.Program, error) {
	return loader.Open(path, cfg.BinaryBase)
}
