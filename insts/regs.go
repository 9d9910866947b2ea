package insts

// Reg is an integer register index (0-31).
type Reg uint8

// RegNone marks an operand slot that does not read a register.
const RegNone Reg = 0xFF

// NumRegs is the number of integer registers.
const NumRegs = 32

// ABI register indices used by the simulator.
const (
	RegZero Reg = 0
	RegRA   Reg = 1
	RegSP   Reg = 2
	RegGP   Reg = 3
	RegTP   Reg = 4
	RegT0   Reg = 5
	RegT1   Reg = 6
	RegT2   Reg = 7
	RegS0   Reg = 8
	RegS1   Reg = 9
	RegA0   Reg = 10
	RegA1   Reg = 11
	RegA2   Reg = 12
	RegA3   Reg = 13
	RegA4   Reg = 14
	RegA5   Reg = 15
	RegA6   Reg = 16
	RegA7   Reg = 17
)

var regNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// String returns the ABI name of the register.
func (r Reg) String() string {
	if r >= NumRegs {
		return "-"
	}
	return regNames[r]
}

// Valid reports whether r names a real register.
func (r Reg) Valid() bool {
	return r < NumRegs
}
