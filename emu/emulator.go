package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rvsim/insts"
)

// ErrMaxInstructions is returned when the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV32 instructions functionally, one instruction per
// step. It is the reference the pipeline's architectural results are checked
// against.
type Emulator struct {
	regFile        *RegFile
	memory         Port
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	stdin  io.Reader
	stdout io.Writer

	instructionCount uint64
	stepCount        uint64
	maxInstructions  uint64 // 0 means no limit, bubbles count
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStdin sets the console input.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint32) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.WriteReg(insts.RegSP, sp)
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new emulator over memory, starting at entry.
func NewEmulator(memory Port, entry uint32, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{PC: entry},
		memory:  memory,
		decoder: insts.NewDecoder(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(memory, e.stdin, e.stdout)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.stepCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}
	e.stepCount++

	pc := e.regFile.PC
	if pc%2 != 0 {
		return StepResult{Err: fmt.Errorf("fetch at misaligned pc 0x%x: %w", pc, ErrOutOfRange)}
	}

	word, _, err := e.memory.Read32(pc)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at 0x%x: %w", pc, err)}
	}

	// An all-zero word is a bubble and retires nothing.
	if word == 0 {
		e.regFile.PC += 4
		return StepResult{}
	}

	e.instructionCount++

	inst, err := e.decoder.Decode(word, pc)
	if err != nil {
		return StepResult{Err: err}
	}

	result := e.execute(inst)
	e.regFile.ForceZero()

	return result
}

// Run executes instructions until the program exits or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Exited {
			return nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	op1, op2, op3 := inst.Operands(e.regFile.ReadReg)
	nextPC := inst.PC + 4

	if inst.Kind == insts.KindECALL {
		sr, err := e.syscallHandler.Handle(op2, op1)
		if err != nil {
			return StepResult{Err: err}
		}
		e.writeBack(inst.Rd, uint32(sr.Value))
		e.regFile.PC = nextPC
		return StepResult{Exited: sr.Exited}
	}

	r := Execute(inst, op1, op2, op3)

	switch {
	case inst.Kind.IsLoad():
		v, _, err := Load(e.memory, inst.Kind, r.Addr)
		if err != nil {
			return StepResult{Err: err}
		}
		r.Value = v
	case inst.Kind.IsStore():
		if _, err := Store(e.memory, inst.Kind, r.Addr, r.Value); err != nil {
			return StepResult{Err: err}
		}
	}

	if r.WriteReg {
		e.writeBack(inst.Rd, r.Value)
	}

	if r.Redirect {
		nextPC = r.Target
	}
	e.regFile.PC = nextPC

	return StepResult{}
}

func (e *Emulator) writeBack(rd insts.Reg, value uint32) {
	if rd == insts.RegZero {
		return
	}
	e.regFile.WriteReg(rd, value)
}
