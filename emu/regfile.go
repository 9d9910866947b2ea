// Package emu provides the RV32 architectural state and a functional
// reference emulator.
package emu

import "github.com/sarchlab/rvsim/insts"

// RegFile represents the RV32 integer register file.
type RegFile struct {
	// X holds the integer registers x0-x31.
	X [insts.NumRegs]uint32

	// PC is the program counter. The pipeline keeps its own fetch PC and
	// only uses this field to seed it.
	PC uint32
}

// ReadReg reads a register value. Out-of-range registers (e.g. the RegNone
// sentinel) read as 0.
func (r *RegFile) ReadReg(reg insts.Reg) uint32 {
	if !reg.Valid() {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range registers are
// ignored. Writes to x0 land; callers restore it with ForceZero.
func (r *RegFile) WriteReg(reg insts.Reg, value uint32) {
	if !reg.Valid() {
		return
	}
	r.X[reg] = value
}

// ForceZero restores the hard-wired zero register.
func (r *RegFile) ForceZero() {
	r.X[insts.RegZero] = 0
}

// Snapshot returns a copy of the integer registers.
func (r *RegFile) Snapshot() [insts.NumRegs]uint32 {
	return r.X
}
