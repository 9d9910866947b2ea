// Package pipeline provides a 5-stage pipeline model for cycle-accurate timing simulation.
package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/latency"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory emu.Port
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory emu.Port) *FetchStage {
	return &FetchStage{
		memory: memory,
	}
}

// Fetch reads the instruction word at pc. Fetch latency is not modelled.
func (s *FetchStage) Fetch(pc uint32) (FetchRegister, error) {
	if pc%2 != 0 {
		return FetchRegister{}, fmt.Errorf("illegal pc 0x%x: %w", pc, emu.ErrOutOfRange)
	}

	word, _, err := s.memory.Read32(pc)
	if err != nil {
		return FetchRegister{}, fmt.Errorf("fetch: %w", err)
	}

	return FetchRegister{Word: word, PC: pc}, nil
}

// DecodeStage handles instruction decode, register read and branch
// prediction.
type DecodeStage struct {
	regFile   *emu.RegFile
	decoder   *insts.Decoder
	predictor BranchPredictor
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, predictor BranchPredictor) *DecodeStage {
	return &DecodeStage{
		regFile:   regFile,
		decoder:   insts.NewDecoder(),
		predictor: predictor,
	}
}

// Decode decodes the fetched word and snapshots its register operands. An
// all-zero word is a bubble.
func (s *DecodeStage) Decode(in FetchRegister) DecodeRegister {
	if in.Bubble || in.Word == 0 {
		return DecodeRegister{Bubble: true}
	}

	out := DecodeRegister{
		PC:   in.PC,
		Src:  [3]insts.Reg{insts.RegNone, insts.RegNone, insts.RegNone},
		Dest: insts.RegZero,
	}

	inst, err := s.decoder.Decode(in.Word, in.PC)
	if err != nil {
		out.Err = err
		return out
	}

	out.Inst = inst
	out.Src = inst.Src
	out.Dest = inst.Rd
	op1, op2, op3 := inst.Operands(s.regFile.ReadReg)
	out.Ops = [3]int32{op1, op2, op3}

	if inst.Kind.IsBranch() {
		out.PredictedTaken = s.predictor.Predict(in.PC, inst.Kind, op1, op2, inst.Offset)
		if out.PredictedTaken {
			out.PredictedPC = in.PC + uint32(inst.Offset)
			out.AnotherPC = in.PC + 4
		} else {
			out.AnotherPC = in.PC + uint32(inst.Offset)
		}
	}

	return out
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	Reg   ExecuteRegister
	Offer ForwardOffer

	// Branch is set for conditional branches; Correct reports whether the
	// decode-time prediction matched the outcome.
	Branch  bool
	Correct bool

	// Control is set for a misprediction or any jump. Target is the
	// address fetch must continue from.
	Control bool
	Target  uint32

	// ExtraCycles is the latency penalty charged on top of this cycle.
	ExtraCycles uint64

	// Exited is set by an exit system call.
	Exited bool
}

// ExecuteStage handles ALU operations, branch resolution and system calls.
type ExecuteStage struct {
	predictor      BranchPredictor
	syscallHandler emu.SyscallHandler
	latencyTable   *latency.Table
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(
	predictor BranchPredictor,
	syscallHandler emu.SyscallHandler,
	latencyTable *latency.Table,
) *ExecuteStage {
	return &ExecuteStage{
		predictor:      predictor,
		syscallHandler: syscallHandler,
		latencyTable:   latencyTable,
	}
}

// Execute runs the instruction held in the decode register.
func (s *ExecuteStage) Execute(in *DecodeRegister) (ExecuteResult, error) {
	if in.Err != nil {
		return ExecuteResult{}, in.Err
	}

	inst := in.Inst
	op1, op2, op3 := in.Ops[0], in.Ops[1], in.Ops[2]

	result := ExecuteResult{
		Reg: ExecuteRegister{
			Inst: inst,
			PC:   in.PC,
			Dest: in.Dest,
		},
		ExtraCycles: s.latencyTable.ExtraCycles(inst),
	}

	if inst.Kind == insts.KindECALL {
		sr, err := s.syscallHandler.Handle(op2, op1)
		if err != nil {
			return ExecuteResult{}, err
		}
		result.Reg.WriteReg = true
		result.Reg.Out = sr.Value
		result.Exited = sr.Exited
	} else {
		r := emu.Execute(inst, op1, op2, op3)
		result.Reg.WriteReg = r.WriteReg

		switch {
		case inst.Kind.IsLoad(), inst.Kind.IsStore():
			result.Reg.Out = int32(r.Addr)
			result.Reg.StoreValue = r.Value
		default:
			result.Reg.Out = int32(r.Value)
		}

		switch {
		case inst.Kind.IsBranch():
			result.Branch = true
			result.Correct = r.Redirect == in.PredictedTaken
			if !result.Correct {
				result.Control = true
				result.Target = in.AnotherPC
			}
			s.predictor.Update(in.PC, r.Redirect)
		case inst.Kind.IsJump():
			result.Control = true
			result.Target = r.Target
		}
	}

	if result.Reg.WriteReg {
		result.Offer = ForwardOffer{
			Tier:    TierExecute,
			Reg:     in.Dest,
			Value:   result.Reg.Out,
			Pending: inst.Kind.IsLoad(),
		}
	}

	return result, nil
}

// MemoryStage handles loads and stores.
type MemoryStage struct {
	memory emu.Port
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory emu.Port) *MemoryStage {
	return &MemoryStage{
		memory: memory,
	}
}

// Access performs the memory operation of in, if any, and returns the
// register for write-back with the access latency in cycles.
func (s *MemoryStage) Access(in *ExecuteRegister) (MemoryRegister, int, error) {
	if in.Bubble {
		return MemoryRegister{Bubble: true}, 0, nil
	}

	out := MemoryRegister{
		Inst:     in.Inst,
		PC:       in.PC,
		WriteReg: in.WriteReg,
		Dest:     in.Dest,
		Out:      in.Out,
	}

	var (
		cycles int
		err    error
	)

	kind := in.Inst.Kind
	switch {
	case kind.IsStore():
		cycles, err = emu.Store(s.memory, kind, uint32(in.Out), in.StoreValue)
	case kind.IsLoad():
		var v uint32
		v, cycles, err = emu.Load(s.memory, kind, uint32(in.Out))
		out.Out = int32(v)
	}
	if err != nil {
		return MemoryRegister{}, 0, err
	}

	return out, cycles, nil
}

// offer returns the result of r as a forward offer from tier.
func (r *MemoryRegister) offer(tier Tier) ForwardOffer {
	if r.Bubble || !r.WriteReg {
		return ForwardOffer{}
	}
	return ForwardOffer{Tier: tier, Reg: r.Dest, Value: r.Out}
}

// WritebackStage commits results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the result of in, skipping x0, and returns true if an
// instruction retired through this stage.
func (s *WritebackStage) Writeback(in *MemoryRegister) bool {
	if in.Bubble {
		return false
	}

	if in.WriteReg && in.Dest != insts.RegZero {
		s.regFile.WriteReg(in.Dest, uint32(in.Out))
	}

	return true
}
