// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// Default stack placement. The stack grows down from StackBase and may use
// StackSize bytes.
const (
	DefaultStackBase = 0x80000000
	DefaultStackSize = 0x400000
)

// CacheConfig configures the optional data cache.
type CacheConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Size          int    `json:"size" yaml:"size"`
	Associativity int    `json:"associativity" yaml:"associativity"`
	BlockSize     int    `json:"block_size" yaml:"block_size"`
	HitLatency    uint64 `json:"hit_latency" yaml:"hit_latency"`
	MissLatency   uint64 `json:"miss_latency" yaml:"miss_latency"`
}

// Cache returns the cache geometry.
func (c CacheConfig) Cache() cache.Config {
	return cache.Config{
		Size:          c.Size,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
		HitLatency:    c.HitLatency,
		MissLatency:   c.MissLatency,
	}
}

// Config is the complete simulator configuration.
type Config struct {
	Verbose        bool `json:"verbose" yaml:"verbose"`
	SingleStep     bool `json:"single_step" yaml:"single_step"`
	DataForwarding bool `json:"data_forwarding" yaml:"data_forwarding"`
	DumpHistory    bool `json:"dump_history" yaml:"dump_history"`

	StackBase  uint32 `json:"stack_base" yaml:"stack_base"`
	StackSize  uint32 `json:"stack_size" yaml:"stack_size"`
	MemorySize uint64 `json:"memory_size" yaml:"memory_size"`

	// BinaryBase is where a raw binary image is loaded.
	BinaryBase uint32 `json:"binary_base" yaml:"binary_base"`

	// Predictor is a strategy key: AT, NT, BTFNT or BPB.
	Predictor string `json:"predictor" yaml:"predictor"`

	// HistoryLimit caps the execution history. Zero disables it.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`

	// MaxCycles stops a run that has not exited. Zero means no limit.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	Cache  CacheConfig          `json:"cache" yaml:"cache"`
	Timing latency.TimingConfig `json:"timing" yaml:"timing"`
}

// Default returns the default configuration.
func Default() *Config {
	cc := cache.DefaultConfig()

	return &Config{
		DataForwarding: true,
		StackBase:      DefaultStackBase,
		StackSize:      DefaultStackSize,
		MemorySize:     emu.DefaultMemorySize,
		Predictor:      pipeline.StrategyBuffer,
		HistoryLimit:   pipeline.DefaultHistoryLimit,
		Cache: CacheConfig{
			Size:          cc.Size,
			Associativity: cc.Associativity,
			BlockSize:     cc.BlockSize,
			HitLatency:    cc.HitLatency,
			MissLatency:   cc.MissLatency,
		},
		Timing: *latency.DefaultTimingConfig(),
	}
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("unsupported config file extension %q (want .json, .yaml or .yml)",
		filepath.Ext(path))
}

// Load reads a configuration file, JSON or YAML by extension. Missing
// fields keep their defaults. The result is validated.
func Load(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	switch f {
	case formatJSON:
		err = json.Unmarshal(data, c)
	case formatYAML:
		err = yaml.UnmarshalStrict(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return c, nil
}

// Save writes the configuration, JSON or YAML by extension.
func (c *Config) Save(path string) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(c, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := pipeline.NewBranchPredictor(c.Predictor); err != nil {
		return err
	}

	if c.MemorySize == 0 || c.MemorySize > emu.DefaultMemorySize {
		return fmt.Errorf("memory_size must be in (0, 0x%x]", emu.DefaultMemorySize)
	}
	if c.StackSize > c.StackBase {
		return fmt.Errorf("stack_size 0x%x exceeds stack_base 0x%x", c.StackSize, c.StackBase)
	}
	if uint64(c.StackBase) > c.MemorySize {
		return fmt.Errorf("stack_base 0x%x is outside memory_size 0x%x", c.StackBase, c.MemorySize)
	}
	if uint64(c.BinaryBase) >= c.MemorySize {
		return fmt.Errorf("binary_base 0x%x is outside memory_size 0x%x", c.BinaryBase, c.MemorySize)
	}
	if c.BinaryBase%4 != 0 {
		return fmt.Errorf("binary_base 0x%x is not word aligned", c.BinaryBase)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}

	if c.Cache.Enabled {
		if err := c.Cache.Cache().Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
