package insts

import (
	"fmt"
	"strconv"
)

// Mnemonic returns the assembler mnemonic the instruction was decoded with.
func (i *Instruction) Mnemonic() string {
	if i.mnemonic == "" {
		return i.Kind.String()
	}
	return i.mnemonic
}

// Text returns the disassembly of the instruction using ABI register names.
func (i *Instruction) Text() string {
	name := i.Mnemonic()

	switch i.Kind.Class() {
	case ClassUpper:
		return fmt.Sprintf("%s %s,%d", name, i.Rd, i.Offset)
	case ClassJump:
		if i.Kind == KindJAL {
			return fmt.Sprintf("%s %s,%d", name, i.Rd, i.Offset)
		}
		return fmt.Sprintf("%s %s,%s,%d", name, i.Rd, i.Src[0], i.Imm[1])
	case ClassBranch:
		return fmt.Sprintf("%s %s,%s,%d", name, i.Src[0], i.Src[1], i.Offset)
	case ClassLoad:
		return fmt.Sprintf("%s %s,%d(%s)", name, i.Rd, i.Offset, i.Src[0])
	case ClassStore:
		return fmt.Sprintf("%s %s,%d(%s)", name, i.Src[1], i.Offset, i.Src[0])
	case ClassSystem:
		return name
	}

	if i.Src[2] != RegNone {
		return fmt.Sprintf("%s %s,%s,%s,%s", name, i.Rd, i.Src[0], i.Src[1], i.Src[2])
	}
	return fmt.Sprintf("%s %s,%s,%s", name, i.Rd, i.Src[0], i.operandText(1))
}

func (i *Instruction) operandText(n int) string {
	if i.Src[n] == RegNone {
		return strconv.Itoa(int(i.Imm[n]))
	}
	return i.Src[n].String()
}

// String implements fmt.Stringer.
func (i *Instruction) String() string {
	return fmt.Sprintf("0x%x: %s", i.PC, i.Text())
}
