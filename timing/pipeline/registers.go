package pipeline

import (
	"github.com/sarchlab/rvsim/insts"
)

// FetchRegister holds state between the Fetch and Decode stages.
type FetchRegister struct {
	// Bubble is true if the slot holds no instruction.
	Bubble bool

	// Stall is the number of cycles the slot keeps its contents.
	Stall int

	// Word is the raw instruction word.
	Word uint32

	// PC is the fetch address of Word.
	PC uint32
}

// Clear turns the register into a bubble.
func (r *FetchRegister) Clear() {
	*r = FetchRegister{Bubble: true}
}

// DecodeRegister holds state between the Decode and Execute stages.
type DecodeRegister struct {
	Bubble bool
	Stall  int

	// Inst is the decoded instruction. It is nil for bubbles and for words
	// that failed to decode.
	Inst *insts.Instruction

	// Err is a decode failure. It becomes fatal only when the word reaches
	// the execute stage, so a wrong-path word never stops the machine.
	Err error

	PC uint32

	// Src names the register each operand was read from, or insts.RegNone
	// for immediate operands.
	Src [3]insts.Reg

	// Ops are the operand values, snapshotted from the register file at
	// decode and patched by forwarding.
	Ops [3]int32

	// Dest is the destination register.
	Dest insts.Reg

	// PredictedTaken is the branch predictor's guess for branch kinds.
	PredictedTaken bool

	// PredictedPC is the target fetched from when PredictedTaken is set.
	PredictedPC uint32

	// AnotherPC is where execution resumes on a misprediction.
	AnotherPC uint32
}

// Clear turns the register into a bubble.
func (r *DecodeRegister) Clear() {
	*r = DecodeRegister{Bubble: true}
}

// Reads returns true if any operand was read from reg.
func (r *DecodeRegister) Reads(reg insts.Reg) bool {
	if r.Bubble || !reg.Valid() {
		return false
	}
	for _, src := range r.Src {
		if src == reg {
			return true
		}
	}
	return false
}

// ExecuteRegister holds state between the Execute and Memory stages.
type ExecuteRegister struct {
	Bubble bool

	Inst *insts.Instruction
	PC   uint32

	// WriteReg is true if Out goes to Dest at write-back.
	WriteReg bool
	Dest     insts.Reg

	// Out is the ALU result, or the effective address for loads and stores.
	Out int32

	// StoreValue is the data written by a store.
	StoreValue uint32
}

// Clear turns the register into a bubble.
func (r *ExecuteRegister) Clear() {
	*r = ExecuteRegister{Bubble: true}
}

// MemoryRegister holds state between the Memory and Writeback stages.
type MemoryRegister struct {
	Bubble bool

	Inst     *insts.Instruction
	PC       uint32
	WriteReg bool
	Dest     insts.Reg
	Out      int32
}

// Clear turns the register into a bubble.
func (r *MemoryRegister) Clear() {
	*r = MemoryRegister{Bubble: true}
}
