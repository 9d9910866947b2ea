package emu

import "github.com/sarchlab/rvsim/insts"

// BranchTaken evaluates the condition of a conditional branch.
func BranchTaken(kind insts.Kind, op1, op2 int32) bool {
	switch kind {
	case insts.KindBEQ:
		return op1 == op2
	case insts.KindBNE:
		return op1 != op2
	case insts.KindBLT:
		return op1 < op2
	case insts.KindBGE:
		return op1 >= op2
	case insts.KindBLTU:
		return uint32(op1) < uint32(op2)
	case insts.KindBGEU:
		return uint32(op1) >= uint32(op2)
	}
	return false
}
