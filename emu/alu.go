package emu

import (
	"math"

	"github.com/sarchlab/rvsim/insts"
)

// Result is the outcome of the execute step of one instruction.
type Result struct {
	// Value is the register result, or the store data for stores.
	Value uint32

	// WriteReg is true if Value must be written to the destination register.
	WriteReg bool

	// Addr is the effective address of a load or store.
	Addr uint32

	// Redirect is true if control transfers to Target (a taken branch or
	// any jump).
	Redirect bool
	Target   uint32
}

// Execute computes the result of inst from its resolved operands. ECALL is
// not handled here; its result comes from the system-call handler.
func Execute(inst *insts.Instruction, op1, op2, op3 int32) Result {
	pc := inst.PC
	kind := inst.Kind

	switch kind.Class() {
	case insts.ClassUpper:
		v := uint32(inst.Offset) << 12
		if kind == insts.KindAUIPC {
			v += pc
		}
		return Result{Value: v, WriteReg: true}

	case insts.ClassJump:
		r := Result{Value: pc + 4, WriteReg: true, Redirect: true}
		if kind == insts.KindJAL {
			r.Target = pc + uint32(inst.Offset)
		} else {
			r.Target = uint32(op1+op2) &^ 1
		}
		return r

	case insts.ClassBranch:
		if BranchTaken(kind, op1, op2) {
			return Result{Redirect: true, Target: pc + uint32(inst.Offset)}
		}
		return Result{}

	case insts.ClassLoad:
		return Result{Addr: uint32(op1 + inst.Offset), WriteReg: true}

	case insts.ClassStore:
		return Result{Addr: uint32(op1 + inst.Offset), Value: truncate(uint32(op2), kind.MemLen())}
	}

	return Result{Value: uint32(ALU(kind, op1, op2, op3)), WriteReg: true}
}

// ALU computes the arithmetic, logic, shift and multiply/divide kinds.
func ALU(kind insts.Kind, op1, op2, op3 int32) int32 {
	switch kind {
	case insts.KindADD, insts.KindADDI:
		return op1 + op2
	case insts.KindSUB:
		return op1 - op2
	case insts.KindSLT, insts.KindSLTI:
		return boolToInt(op1 < op2)
	case insts.KindSLTU, insts.KindSLTIU:
		return boolToInt(uint32(op1) < uint32(op2))
	case insts.KindXOR, insts.KindXORI:
		return op1 ^ op2
	case insts.KindOR, insts.KindORI:
		return op1 | op2
	case insts.KindAND, insts.KindANDI:
		return op1 & op2
	case insts.KindSLL, insts.KindSLLI:
		return op1 << (uint32(op2) & 0x1F)
	case insts.KindSRL, insts.KindSRLI:
		return int32(uint32(op1) >> (uint32(op2) & 0x1F))
	case insts.KindSRA, insts.KindSRAI:
		return op1 >> (uint32(op2) & 0x1F)
	case insts.KindMUL:
		return op1 * op2
	case insts.KindMULH:
		return int32((int64(op1) * int64(op2)) >> 32)
	case insts.KindDIV:
		return divide(op1, op2)
	case insts.KindREM:
		return remainder(op1, op2)
	case insts.KindFMADD:
		return op1*op2 + op3
	case insts.KindFMSUB:
		return op1*op2 - op3
	case insts.KindFNMADD:
		return -op1*op2 + op3
	case insts.KindFNMSUB:
		return -op1*op2 - op3
	}
	return 0
}

// divide follows the RISC-V rules: x/0 = -1 and MinInt32/-1 = MinInt32.
func divide(a, b int32) int32 {
	switch {
	case b == 0:
		return -1
	case a == math.MinInt32 && b == -1:
		return a
	}
	return a / b
}

// remainder follows the RISC-V rules: x%0 = x and MinInt32%-1 = 0.
func remainder(a, b int32) int32 {
	switch {
	case b == 0:
		return a
	case a == math.MinInt32 && b == -1:
		return 0
	}
	return a % b
}

func truncate(v uint32, n uint8) uint32 {
	switch n {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	}
	return v
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
