package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// MaxPenalty bounds every configurable penalty.
const MaxPenalty = 1000

// TimingConfig holds the extra cycles charged on top of the one-cycle
// pipeline stages. Penalties are added to the cycle counter and never stall
// the pipeline.
type TimingConfig struct {
	// MultiplyPenalty is charged for MUL, MULH and the fused
	// multiply-accumulate kinds. Default: 3 cycles.
	MultiplyPenalty uint64 `json:"multiply_penalty" yaml:"multiply_penalty"`

	// DividePenalty is charged for DIV and REM. Default: 0 cycles.
	DividePenalty uint64 `json:"divide_penalty" yaml:"divide_penalty"`

	// SyscallPenalty is charged for ECALL. Default: 0 cycles.
	SyscallPenalty uint64 `json:"syscall_penalty" yaml:"syscall_penalty"`
}

// DefaultTimingConfig returns the default penalties.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MultiplyPenalty: 3,
		DividePenalty:   0,
		SyscallPenalty:  0,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep their
// defaults.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all penalties are within MaxPenalty.
func (c *TimingConfig) Validate() error {
	if c.MultiplyPenalty > MaxPenalty {
		return fmt.Errorf("multiply_penalty must be <= %d", MaxPenalty)
	}
	if c.DividePenalty > MaxPenalty {
		return fmt.Errorf("divide_penalty must be <= %d", MaxPenalty)
	}
	if c.SyscallPenalty > MaxPenalty {
		return fmt.Errorf("syscall_penalty must be <= %d", MaxPenalty)
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
