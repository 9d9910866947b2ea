package insts

// Instruction encoding helpers, used to build programs for tests and tools.

// EncodeR encodes an R-type instruction.
func EncodeR(opcode uint32, rd Reg, funct3 uint32, rs1, rs2 Reg, funct7 uint32) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		uint32(rd)<<7 | opcode
}

// EncodeR4 encodes a fused instruction with three source registers.
func EncodeR4(opcode uint32, rd Reg, funct3 uint32, rs1, rs2, rs3 Reg, funct2 uint32) uint32 {
	return uint32(rs3)<<27 | (funct2&0x3)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		funct3<<12 | uint32(rd)<<7 | opcode
}

// EncodeI encodes an I-type instruction.
func EncodeI(opcode uint32, rd Reg, funct3 uint32, rs1 Reg, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// EncodeS encodes an S-type instruction.
func EncodeS(opcode uint32, funct3 uint32, rs1, rs2 Reg, imm int32) uint32 {
	u := uint32(imm & 0xFFF)
	return (u>>5)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		(u&0x1F)<<7 | opcode
}

// EncodeB encodes a B-type instruction. The offset must be even.
func EncodeB(opcode uint32, funct3 uint32, rs1, rs2 Reg, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>12)&0x1)<<31 | ((u>>5)&0x3F)<<25 |
		uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		((u>>1)&0xF)<<8 | ((u>>11)&0x1)<<7 | opcode
}

// EncodeU encodes a U-type instruction. imm holds bits 31:12 of the result.
func EncodeU(opcode uint32, rd Reg, imm int32) uint32 {
	return (uint32(imm)&0xFFFFF)<<12 | uint32(rd)<<7 | opcode
}

// EncodeJ encodes a J-type instruction. The offset must be even.
func EncodeJ(opcode uint32, rd Reg, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>20)&0x1)<<31 | ((u>>1)&0x3FF)<<21 |
		((u>>11)&0x1)<<20 | ((u>>12)&0xFF)<<12 |
		uint32(rd)<<7 | opcode
}

// Assembler shorthands for the most common instructions.

func ADD(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x0, rs1, rs2, 0x00) }
func SUB(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x0, rs1, rs2, 0x20) }
func AND(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x7, rs1, rs2, 0x00) }
func OR(rd, rs1, rs2 Reg) uint32   { return EncodeR(OpcodeReg, rd, 0x6, rs1, rs2, 0x00) }
func XOR(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x4, rs1, rs2, 0x00) }
func SLT(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x2, rs1, rs2, 0x00) }
func SLTU(rd, rs1, rs2 Reg) uint32 { return EncodeR(OpcodeReg, rd, 0x3, rs1, rs2, 0x00) }
func SLL(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x1, rs1, rs2, 0x00) }
func SRL(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x5, rs1, rs2, 0x00) }
func SRA(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x5, rs1, rs2, 0x20) }
func MUL(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x0, rs1, rs2, 0x01) }
func MULH(rd, rs1, rs2 Reg) uint32 { return EncodeR(OpcodeReg, rd, 0x1, rs1, rs2, 0x01) }
func DIV(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x4, rs1, rs2, 0x01) }
func REM(rd, rs1, rs2 Reg) uint32  { return EncodeR(OpcodeReg, rd, 0x6, rs1, rs2, 0x01) }

func ADDI(rd, rs1 Reg, imm int32) uint32  { return EncodeI(OpcodeImm, rd, 0x0, rs1, imm) }
func SLTI(rd, rs1 Reg, imm int32) uint32  { return EncodeI(OpcodeImm, rd, 0x2, rs1, imm) }
func SLTIU(rd, rs1 Reg, imm int32) uint32 { return EncodeI(OpcodeImm, rd, 0x3, rs1, imm) }
func XORI(rd, rs1 Reg, imm int32) uint32  { return EncodeI(OpcodeImm, rd, 0x4, rs1, imm) }
func ORI(rd, rs1 Reg, imm int32) uint32   { return EncodeI(OpcodeImm, rd, 0x6, rs1, imm) }
func ANDI(rd, rs1 Reg, imm int32) uint32  { return EncodeI(OpcodeImm, rd, 0x7, rs1, imm) }
func SLLI(rd, rs1 Reg, sh int32) uint32   { return EncodeI(OpcodeImm, rd, 0x1, rs1, sh&0x1F) }
func SRLI(rd, rs1 Reg, sh int32) uint32   { return EncodeI(OpcodeImm, rd, 0x5, rs1, sh&0x1F) }
func SRAI(rd, rs1 Reg, sh int32) uint32 {
	return EncodeI(OpcodeImm, rd, 0x5, rs1, sh&0x1F|0x400)
}

func LB(rd, rs1 Reg, off int32) uint32  { return EncodeI(OpcodeLoad, rd, 0x0, rs1, off) }
func LH(rd, rs1 Reg, off int32) uint32  { return EncodeI(OpcodeLoad, rd, 0x1, rs1, off) }
func LW(rd, rs1 Reg, off int32) uint32  { return EncodeI(OpcodeLoad, rd, 0x2, rs1, off) }
func LBU(rd, rs1 Reg, off int32) uint32 { return EncodeI(OpcodeLoad, rd, 0x4, rs1, off) }
func LHU(rd, rs1 Reg, off int32) uint32 { return EncodeI(OpcodeLoad, rd, 0x5, rs1, off) }

func SB(rs2, rs1 Reg, off int32) uint32 { return EncodeS(OpcodeStore, 0x0, rs1, rs2, off) }
func SH(rs2, rs1 Reg, off int32) uint32 { return EncodeS(OpcodeStore, 0x1, rs1, rs2, off) }
func SW(rs2, rs1 Reg, off int32) uint32 { return EncodeS(OpcodeStore, 0x2, rs1, rs2, off) }

func BEQ(rs1, rs2 Reg, off int32) uint32  { return EncodeB(OpcodeBranch, 0x0, rs1, rs2, off) }
func BNE(rs1, rs2 Reg, off int32) uint32  { return EncodeB(OpcodeBranch, 0x1, rs1, rs2, off) }
func BLT(rs1, rs2 Reg, off int32) uint32  { return EncodeB(OpcodeBranch, 0x4, rs1, rs2, off) }
func BGE(rs1, rs2 Reg, off int32) uint32  { return EncodeB(OpcodeBranch, 0x5, rs1, rs2, off) }
func BLTU(rs1, rs2 Reg, off int32) uint32 { return EncodeB(OpcodeBranch, 0x6, rs1, rs2, off) }
func BGEU(rs1, rs2 Reg, off int32) uint32 { return EncodeB(OpcodeBranch, 0x7, rs1, rs2, off) }

func LUI(rd Reg, imm int32) uint32   { return EncodeU(OpcodeLUI, rd, imm) }
func AUIPC(rd Reg, imm int32) uint32 { return EncodeU(OpcodeAUIPC, rd, imm) }
func JAL(rd Reg, off int32) uint32   { return EncodeJ(OpcodeJAL, rd, off) }
func JALR(rd, rs1 Reg, off int32) uint32 {
	return EncodeI(OpcodeJALR, rd, 0x0, rs1, off)
}

// ECALL returns the environment call word.
func ECALL() uint32 { return OpcodeSystem }

func FMADD(rd, rs1, rs2, rs3 Reg) uint32 {
	return EncodeR4(OpcodeFused, rd, 0x0, rs1, rs2, rs3, 0x0)
}

func FMSUB(rd, rs1, rs2, rs3 Reg) uint32 {
	return EncodeR4(OpcodeFused, rd, 0x0, rs1, rs2, rs3, 0x2)
}

func FNMADD(rd, rs1, rs2, rs3 Reg) uint32 {
	return EncodeR4(OpcodeFused, rd, 0x1, rs1, rs2, rs3, 0x0)
}

func FNMSUB(rd, rs1, rs2, rs3 Reg) uint32 {
	return EncodeR4(OpcodeFused, rd, 0x1, rs1, rs2, rs3, 0x1)
}
