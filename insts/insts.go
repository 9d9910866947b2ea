// Package insts provides RV32 instruction definitions and decoding.
//
// This package implements decoding of 32-bit RISC-V machine code into
// structured instruction records. It supports:
//   - RV32I integer computational, load/store, branch and jump instructions
//   - ECALL system calls
//   - Integer multiply/divide/remainder (MUL, MULH, DIV, REM)
//   - Four fused multiply-accumulate forms on integer registers
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x00A00293, 0x1000) // addi t0,zero,10
//	fmt.Println(inst.Kind, inst.Rd, inst.Text())
package insts

// Kind identifies an instruction.
type Kind uint8

// Instruction kinds.
const (
	KindUnknown Kind = iota
	KindLUI
	KindAUIPC
	KindJAL
	KindJALR
	KindBEQ
	KindBNE
	KindBLT
	KindBGE
	KindBLTU
	KindBGEU
	KindLB
	KindLH
	KindLW
	KindLBU
	KindLHU
	KindSB
	KindSH
	KindSW
	KindADDI
	KindSLTI
	KindSLTIU
	KindXORI
	KindORI
	KindANDI
	KindSLLI
	KindSRLI
	KindSRAI
	KindADD
	KindSUB
	KindSLL
	KindSLT
	KindSLTU
	KindXOR
	KindSRL
	KindSRA
	KindOR
	KindAND
	KindECALL
	KindFMADD
	KindFMSUB
	KindFNMADD
	KindFNMSUB
	KindMUL
	KindMULH
	KindDIV
	KindREM

	numKinds
)

// Class groups instruction kinds by the pipeline resources they use.
type Class uint8

// Instruction classes.
const (
	ClassNone Class = iota
	ClassALU
	ClassUpper
	ClassJump
	ClassBranch
	ClassLoad
	ClassStore
	ClassSystem
	ClassMultiply
	ClassDivide
)

type kindInfo struct {
	name  string
	class Class

	// memLen and signExt describe loads and stores.
	memLen  uint8
	signExt bool
}

// kindTable is indexed by Kind and never modified.
var kindTable = [numKinds]kindInfo{
	KindUnknown: {name: "unknown"},
	KindLUI:     {name: "lui", class: ClassUpper},
	KindAUIPC:   {name: "auipc", class: ClassUpper},
	KindJAL:     {name: "jal", class: ClassJump},
	KindJALR:    {name: "jalr", class: ClassJump},
	KindBEQ:     {name: "beq", class: ClassBranch},
	KindBNE:     {name: "bne", class: ClassBranch},
	KindBLT:     {name: "blt", class: ClassBranch},
	KindBGE:     {name: "bge", class: ClassBranch},
	KindBLTU:    {name: "bltu", class: ClassBranch},
	KindBGEU:    {name: "bgeu", class: ClassBranch},
	KindLB:      {name: "lb", class: ClassLoad, memLen: 1, signExt: true},
	KindLH:      {name: "lh", class: ClassLoad, memLen: 2, signExt: true},
	KindLW:      {name: "lw", class: ClassLoad, memLen: 4, signExt: true},
	KindLBU:     {name: "lbu", class: ClassLoad, memLen: 1},
	KindLHU:     {name: "lhu", class: ClassLoad, memLen: 2},
	KindSB:      {name: "sb", class: ClassStore, memLen: 1},
	KindSH:      {name: "sh", class: ClassStore, memLen: 2},
	KindSW:      {name: "sw", class: ClassStore, memLen: 4},
	KindADDI:    {name: "addi", class: ClassALU},
	KindSLTI:    {name: "slti", class: ClassALU},
	KindSLTIU:   {name: "sltiu", class: ClassALU},
	KindXORI:    {name: "xori", class: ClassALU},
	KindORI:     {name: "ori", class: ClassALU},
	KindANDI:    {name: "andi", class: ClassALU},
	KindSLLI:    {name: "slli", class: ClassALU},
	KindSRLI:    {name: "srli", class: ClassALU},
	KindSRAI:    {name: "srai", class: ClassALU},
	KindADD:     {name: "add", class: ClassALU},
	KindSUB:     {name: "sub", class: ClassALU},
	KindSLL:     {name: "sll", class: ClassALU},
	KindSLT:     {name: "slt", class: ClassALU},
	KindSLTU:    {name: "sltu", class: ClassALU},
	KindXOR:     {name: "xor", class: ClassALU},
	KindSRL:     {name: "srl", class: ClassALU},
	KindSRA:     {name: "sra", class: ClassALU},
	KindOR:      {name: "or", class: ClassALU},
	KindAND:     {name: "and", class: ClassALU},
	KindECALL:   {name: "ecall", class: ClassSystem},
	KindFMADD:   {name: "fmadd", class: ClassMultiply},
	KindFMSUB:   {name: "fmsub", class: ClassMultiply},
	KindFNMADD:  {name: "fnmadd", class: ClassMultiply},
	KindFNMSUB:  {name: "fnmsub", class: ClassMultiply},
	KindMUL:     {name: "mul", class: ClassMultiply},
	KindMULH:    {name: "mulh", class: ClassMultiply},
	KindDIV:     {name: "div", class: ClassDivide},
	KindREM:     {name: "rem", class: ClassDivide},
}

func (k Kind) info() kindInfo {
	if k >= numKinds {
		return kindTable[KindUnknown]
	}
	return kindTable[k]
}

// String returns the assembler mnemonic of the kind.
func (k Kind) String() string {
	return k.info().name
}

// Class returns the resource class of the kind.
func (k Kind) Class() Class {
	return k.info().class
}

// IsBranch returns true for conditional branches.
func (k Kind) IsBranch() bool {
	return k.info().class == ClassBranch
}

// IsJump returns true for JAL and JALR.
func (k Kind) IsJump() bool {
	return k.info().class == ClassJump
}

// IsLoad returns true for memory reads.
func (k Kind) IsLoad() bool {
	return k.info().class == ClassLoad
}

// IsStore returns true for memory writes.
func (k Kind) IsStore() bool {
	return k.info().class == ClassStore
}

// IsMultiply returns true for MUL, MULH and the fused multiply-accumulate
// kinds.
func (k Kind) IsMultiply() bool {
	return k.info().class == ClassMultiply
}

// MemLen returns the access width in bytes for loads and stores, 0 otherwise.
func (k Kind) MemLen() uint8 {
	return k.info().memLen
}

// SignExtend reports whether a load sign-extends its result.
func (k Kind) SignExtend() bool {
	return k.info().signExt
}

// WritesReg returns true if the kind produces a register result.
func (k Kind) WritesReg() bool {
	switch k.info().class {
	case ClassNone, ClassBranch, ClassStore:
		return false
	default:
		return true
	}
}

// Kinds returns every defined kind except KindUnknown.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds-1)
	for k := KindUnknown + 1; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
