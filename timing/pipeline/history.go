package pipeline

import (
	"github.com/sarchlab/rvsim/insts"
)

// DefaultHistoryLimit is the number of register snapshots kept before both
// logs are cleared.
const DefaultHistoryLimit = 100000

// TraceEntry is one decoded instruction.
type TraceEntry struct {
	Cycle uint64
	PC    uint32
	Text  string
}

// RegSnapshot is the architectural state at the end of a cycle.
type RegSnapshot struct {
	Cycle uint64
	PC    uint32
	Regs  [insts.NumRegs]uint32
}

// History is a best-effort trace of decoded instructions and per-cycle
// register state. Both logs are cleared together when the snapshot log
// reaches the limit.
type History struct {
	limit int
	insts []TraceEntry
	regs  []RegSnapshot
}

// NewHistory creates a history holding up to limit snapshots. A limit of
// zero or less records nothing.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Enabled returns true if the history records anything.
func (h *History) Enabled() bool {
	return h.limit > 0
}

// RecordInst appends a decoded instruction.
func (h *History) RecordInst(cycle uint64, pc uint32, text string) {
	if !h.Enabled() {
		return
	}
	h.insts = append(h.insts, TraceEntry{Cycle: cycle, PC: pc, Text: text})
}

// RecordRegs appends an end-of-cycle snapshot.
func (h *History) RecordRegs(cycle uint64, pc uint32, regs [insts.NumRegs]uint32) {
	if !h.Enabled() {
		return
	}

	h.regs = append(h.regs, RegSnapshot{Cycle: cycle, PC: pc, Regs: regs})
	if len(h.regs) >= h.limit {
		h.insts = h.insts[:0]
		h.regs = h.regs[:0]
	}
}

// Insts returns the decoded-instruction log.
func (h *History) Insts() []TraceEntry {
	return h.insts
}

// Regs returns the register snapshot log.
func (h *History) Regs() []RegSnapshot {
	return h.regs
}
