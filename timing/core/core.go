// Package core provides the cycle-accurate CPU core model.
// It builds memory, the optional data cache, the branch predictor and the
// pipeline from a configuration and a loaded program.
package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// ErrCycleLimit is returned by Run when the configured cycle limit is hit
// before the program exits.
var ErrCycleLimit = errors.New("cycle limit reached")

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// Cache is set when the data cache is enabled.
	Cache *cache.Statistics
}

// Option configures the console and logging of a Core.
type Option func(*Core)

// WithStdin sets the console input of the program.
func WithStdin(r io.Reader) Option {
	return func(c *Core) {
		c.stdin = r
	}
}

// WithStdout sets the console output of the program.
func WithStdout(w io.Writer) Option {
	return func(c *Core) {
		c.stdout = w
	}
}

// WithLogger sets the pipeline trace logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	config  *config.Config
	program *loader.Program

	regFile *emu.RegFile
	memory  *emu.Memory
	cached  *cache.CachedMemory

	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
}

// New loads prog into a fresh memory and builds a core for it.
func New(cfg *config.Config, prog *loader.Program, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Core{
		config:  cfg.Clone(),
		program: prog,
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(emu.WithMemorySize(cfg.MemorySize)),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := prog.LoadInto(c.memory); err != nil {
		return nil, err
	}

	var port emu.Port = c.memory
	if cfg.Cache.Enabled {
		cached, err := cache.NewCachedMemory(cfg.Cache.Cache(), c.memory)
		if err != nil {
			return nil, err
		}
		c.cached = cached
		port = cached
	}

	predictor, err := pipeline.NewBranchPredictor(cfg.Predictor)
	if err != nil {
		return nil, err
	}

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithForwarding(cfg.DataForwarding),
		pipeline.WithBranchPredictor(predictor),
		pipeline.WithSyscallHandler(emu.NewDefaultSyscallHandler(port, c.stdin, c.stdout)),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(&c.config.Timing)),
		pipeline.WithStack(cfg.StackBase, cfg.StackSize),
		pipeline.WithHistoryLimit(cfg.HistoryLimit),
		pipeline.WithFetchPort(c.memory),
	}
	if c.logger != nil {
		pipeOpts = append(pipeOpts, pipeline.WithLogger(c.logger))
	}

	c.Pipeline = pipeline.NewPipeline(c.regFile, port, pipeOpts...)
	c.Pipeline.SetPC(prog.EntryPoint)

	return c, nil
}

// Config returns the configuration the core was built with.
func (c *Core) Config() *config.Config {
	return c.config
}

// Memory returns the backing memory. Lines held dirty in the cache are only
// visible after Flush.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Cache returns the data cache, or nil if it is disabled.
func (c *Core) Cache() *cache.CachedMemory {
	return c.cached
}

// RegFile returns the architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() error {
	return c.Pipeline.Tick()
}

// Halted returns true if the core has halted (e.g., due to exit syscall).
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := Stats{Statistics: c.Pipeline.Stats()}
	if c.cached != nil {
		cs := c.cached.Cache().Stats()
		s.Cache = &cs
	}
	return s
}

// Run executes the core until it halts, fails, or reaches the configured
// cycle limit. Returns the exit code.
func (c *Core) Run() (int, error) {
	limit := c.config.MaxCycles
	if limit == 0 {
		return c.Pipeline.Run()
	}

	running, err := c.Pipeline.RunCycles(limit)
	if err != nil {
		return 0, err
	}
	if running {
		return 0, fmt.Errorf("%w after %d cycles", ErrCycleLimit, c.Pipeline.Stats().Cycles)
	}
	return c.Pipeline.ExitCode(), nil
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	return c.Pipeline.RunCycles(cycles)
}

// Flush writes dirty cache lines back to memory.
func (c *Core) Flush() {
	if c.cached != nil {
		c.cached.Flush()
	}
}

// Dump writes the execution history and the memory contents.
func (c *Core) Dump(w io.Writer) error {
	c.Flush()
	return pipeline.WriteDump(w, c.Pipeline.Snapshot(), c.memory)
}

// DumpFile writes Dump to path.
func (c *Core) DumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if err := c.Dump(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
