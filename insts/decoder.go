package insts

import (
	"errors"
	"fmt"
)

// Opcode field values.
const (
	OpcodeReg    uint32 = 0x33
	OpcodeImm    uint32 = 0x13
	OpcodeLUI    uint32 = 0x37
	OpcodeAUIPC  uint32 = 0x17
	OpcodeJAL    uint32 = 0x6F
	OpcodeJALR   uint32 = 0x67
	OpcodeBranch uint32 = 0x63
	OpcodeStore  uint32 = 0x23
	OpcodeLoad   uint32 = 0x03
	OpcodeSystem uint32 = 0x73
	OpcodeFused  uint32 = 0x0B
)

// Decode errors.
var (
	// ErrUnknownInstruction is returned for an unrecognized opcode or funct
	// combination.
	ErrUnknownInstruction = errors.New("unknown instruction")
	// ErrCompressed is returned for 16-bit compressed encodings.
	ErrCompressed = errors.New("compressed instructions are not supported")
	// ErrMnemonicMismatch is returned when a decode table entry names a
	// different mnemonic than its kind.
	ErrMnemonicMismatch = errors.New("decoded mnemonic does not match instruction kind")
)

// Instruction is a decoded instruction.
//
// Each of the three operand slots either reads a register (Src[i] is a
// register) or carries an immediate value (Src[i] is RegNone and Imm[i] holds
// the value).
type Instruction struct {
	Kind Kind
	Word uint32
	PC   uint32

	// Rd is the destination register. Zero for kinds that write nothing.
	Rd Reg

	// Src holds the source register of each operand slot.
	Src [3]Reg
	// Imm holds the immediate of each operand slot that reads no register.
	Imm [3]int32

	// Offset is the memory offset, branch offset, jump offset or upper
	// immediate, depending on the kind.
	Offset int32

	mnemonic string
}

// Operands resolves the three operand values, reading registers through read.
func (i *Instruction) Operands(read func(Reg) uint32) (op1, op2, op3 int32) {
	var ops [3]int32
	for n := range ops {
		if i.Src[n] == RegNone {
			ops[n] = i.Imm[n]
			continue
		}
		ops[n] = int32(read(i.Src[n]))
	}
	return ops[0], ops[1], ops[2]
}

// Fields holds the raw fields of an instruction word.
type Fields struct {
	Opcode uint32
	Funct2 uint32
	Funct3 uint32
	Funct7 uint32
	Rd     Reg
	Rs1    Reg
	Rs2    Reg
	Rs3    Reg
}

// ExtractFields splits an instruction word into its raw fields.
func ExtractFields(word uint32) Fields {
	return Fields{
		Opcode: word & 0x7F,
		Funct3: (word >> 12) & 0x7,
		Funct2: (word >> 25) & 0x3,
		Funct7: (word >> 25) & 0x7F,
		Rd:     Reg((word >> 7) & 0x1F),
		Rs1:    Reg((word >> 15) & 0x1F),
		Rs2:    Reg((word >> 20) & 0x1F),
		Rs3:    Reg((word >> 27) & 0x1F),
	}
}

// ImmI returns the sign-extended 12-bit I-type immediate.
func ImmI(word uint32) int32 {
	return int32(word) >> 20
}

// ImmS returns the sign-extended 12-bit store offset.
func ImmS(word uint32) int32 {
	raw := ((word >> 7) & 0x1F) | ((word >> 20) & 0xFE0)
	return int32(raw<<20) >> 20
}

// ImmB returns the sign-extended 13-bit branch offset.
// Encoding: imm[12|10:5] in bits 31:25, imm[4:1|11] in bits 11:7.
func ImmB(word uint32) int32 {
	raw := ((word >> 7) & 0x1E) |
		((word >> 20) & 0x7E0) |
		((word << 4) & 0x800) |
		((word >> 19) & 0x1000)
	return int32(raw<<19) >> 19
}

// ImmU returns the sign-extended upper immediate (bits 31:12, not shifted).
func ImmU(word uint32) int32 {
	return int32(word) >> 12
}

// ImmJ returns the sign-extended 21-bit jump offset.
// Encoding: imm[20|10:1|11|19:12] in bits 31:12.
func ImmJ(word uint32) int32 {
	raw := ((word >> 21) & 0x3FF) |
		((word >> 10) & 0x400) |
		((word >> 1) & 0x7F800) |
		((word >> 12) & 0x80000)
	return int32(raw<<12) >> 11
}

type entry struct {
	kind     Kind
	mnemonic string
}

// regOps is keyed by funct3<<7 | funct7.
var regOps = map[uint32]entry{
	0x0<<7 | 0x00: {KindADD, "add"},
	0x0<<7 | 0x01: {KindMUL, "mul"},
	0x0<<7 | 0x20: {KindSUB, "sub"},
	0x1<<7 | 0x00: {KindSLL, "sll"},
	0x1<<7 | 0x01: {KindMULH, "mulh"},
	0x2<<7 | 0x00: {KindSLT, "slt"},
	0x3<<7 | 0x00: {KindSLTU, "sltu"},
	0x4<<7 | 0x00: {KindXOR, "xor"},
	0x4<<7 | 0x01: {KindDIV, "div"},
	0x5<<7 | 0x00: {KindSRL, "srl"},
	0x5<<7 | 0x20: {KindSRA, "sra"},
	0x6<<7 | 0x00: {KindOR, "or"},
	0x6<<7 | 0x01: {KindREM, "rem"},
	0x7<<7 | 0x00: {KindAND, "and"},
}

var immOps = map[uint32]entry{
	0x0: {KindADDI, "addi"},
	0x1: {KindSLLI, "slli"},
	0x2: {KindSLTI, "slti"},
	0x3: {KindSLTIU, "sltiu"},
	0x4: {KindXORI, "xori"},
	0x6: {KindORI, "ori"},
	0x7: {KindANDI, "andi"},
}

// shiftRightOps is keyed by bits 31:26 of an OP-IMM word with funct3 = 5.
var shiftRightOps = map[uint32]entry{
	0x00: {KindSRLI, "srli"},
	0x10: {KindSRAI, "srai"},
}

var branchOps = map[uint32]entry{
	0x0: {KindBEQ, "beq"},
	0x1: {KindBNE, "bne"},
	0x4: {KindBLT, "blt"},
	0x5: {KindBGE, "bge"},
	0x6: {KindBLTU, "bltu"},
	0x7: {KindBGEU, "bgeu"},
}

var storeOps = map[uint32]entry{
	0x0: {KindSB, "sb"},
	0x1: {KindSH, "sh"},
	0x2: {KindSW, "sw"},
}

var loadOps = map[uint32]entry{
	0x0: {KindLB, "lb"},
	0x1: {KindLH, "lh"},
	0x2: {KindLW, "lw"},
	0x4: {KindLBU, "lbu"},
	0x5: {KindLHU, "lhu"},
}

// fusedOps is keyed by funct3<<2 | funct2.
var fusedOps = map[uint32]entry{
	0x0<<2 | 0x0: {KindFMADD, "fmadd"},
	0x0<<2 | 0x1: {KindFMADD, "fmadd"},
	0x0<<2 | 0x2: {KindFMSUB, "fmsub"},
	0x0<<2 | 0x3: {KindFMSUB, "fmsub"},
	0x1<<2 | 0x0: {KindFNMADD, "fnmadd"},
	0x1<<2 | 0x1: {KindFNMSUB, "fnmsub"},
}

// Decoder decodes RV32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// IsCompressed reports whether the word holds a 16-bit compressed encoding.
func IsCompressed(word uint32) bool {
	return word&0x3 != 0x3
}

// Decode decodes a 32-bit instruction word fetched from pc.
func (d *Decoder) Decode(word uint32, pc uint32) (*Instruction, error) {
	if IsCompressed(word) {
		return nil, fmt.Errorf("%w: 0x%08x at 0x%x", ErrCompressed, word, pc)
	}

	f := ExtractFields(word)
	inst := &Instruction{
		Word: word,
		PC:   pc,
		Src:  [3]Reg{RegNone, RegNone, RegNone},
	}

	var (
		e  entry
		ok bool
	)

	switch f.Opcode {
	case OpcodeReg:
		e, ok = regOps[f.Funct3<<7|f.Funct7]
		inst.Rd = f.Rd
		inst.Src[0], inst.Src[1] = f.Rs1, f.Rs2

	case OpcodeImm:
		if f.Funct3 == 0x5 {
			e, ok = shiftRightOps[(word>>26)&0x3F]
		} else {
			e, ok = immOps[f.Funct3]
		}
		inst.Rd = f.Rd
		inst.Src[0] = f.Rs1
		inst.Imm[1] = ImmI(word)
		if e.kind == KindSLLI || e.kind == KindSRLI || e.kind == KindSRAI {
			inst.Imm[1] &= 0x3F
		}

	case OpcodeLUI, OpcodeAUIPC:
		e, ok = entry{KindLUI, "lui"}, true
		if f.Opcode == OpcodeAUIPC {
			e = entry{KindAUIPC, "auipc"}
		}
		inst.Rd = f.Rd
		inst.Imm[0] = ImmU(word)
		inst.Offset = ImmU(word)

	case OpcodeJAL:
		e, ok = entry{KindJAL, "jal"}, true
		inst.Rd = f.Rd
		inst.Imm[0] = ImmJ(word)
		inst.Offset = ImmJ(word)

	case OpcodeJALR:
		e, ok = entry{KindJALR, "jalr"}, f.Funct3 == 0
		inst.Rd = f.Rd
		inst.Src[0] = f.Rs1
		inst.Imm[1] = ImmI(word)

	case OpcodeBranch:
		e, ok = branchOps[f.Funct3]
		inst.Src[0], inst.Src[1] = f.Rs1, f.Rs2
		inst.Offset = ImmB(word)

	case OpcodeStore:
		e, ok = storeOps[f.Funct3]
		inst.Src[0], inst.Src[1] = f.Rs1, f.Rs2
		inst.Offset = ImmS(word)

	case OpcodeLoad:
		e, ok = loadOps[f.Funct3]
		inst.Rd = f.Rd
		inst.Src[0] = f.Rs1
		inst.Imm[1] = ImmI(word)
		inst.Offset = ImmI(word)

	case OpcodeSystem:
		e, ok = entry{KindECALL, "ecall"}, f.Funct3 == 0 && word>>20 == 0
		inst.Rd = RegA0
		inst.Src[0], inst.Src[1] = RegA0, RegA7

	case OpcodeFused:
		e, ok = fusedOps[f.Funct3<<2|f.Funct2]
		inst.Rd = f.Rd
		inst.Src = [3]Reg{f.Rs1, f.Rs2, f.Rs3}

	default:
		return nil, fmt.Errorf("%w: unsupported opcode 0x%x at 0x%x",
			ErrUnknownInstruction, f.Opcode, pc)
	}

	if !ok {
		return nil, fmt.Errorf("%w: opcode 0x%x funct3 0x%x funct7 0x%x at 0x%x",
			ErrUnknownInstruction, f.Opcode, f.Funct3, f.Funct7, pc)
	}

	if err := checkMnemonic(e); err != nil {
		return nil, fmt.Errorf("%w at 0x%x", err, pc)
	}

	inst.Kind = e.kind
	inst.mnemonic = e.mnemonic

	return inst, nil
}

// checkMnemonic guards against the decode tables and the kind table drifting
// apart.
func checkMnemonic(e entry) error {
	if e.mnemonic != e.kind.String() {
		return fmt.Errorf("%w: %q decoded as %q", ErrMnemonicMismatch,
			e.mnemonic, e.kind.String())
	}
	return nil
}
