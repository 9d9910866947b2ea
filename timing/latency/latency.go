// Package latency provides the extra-cycle model applied on top of the
// pipeline's single-cycle stages.
package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Table provides per-instruction penalty lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// ExtraCycles returns the cycles charged for executing inst in addition to
// the cycle it spends in the execute stage.
func (t *Table) ExtraCycles(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 0
	}

	switch inst.Kind.Class() {
	case insts.ClassMultiply:
		return t.config.MultiplyPenalty
	case insts.ClassDivide:
		return t.config.DividePenalty
	case insts.ClassSystem:
		return t.config.SyscallPenalty
	default:
		return 0
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
