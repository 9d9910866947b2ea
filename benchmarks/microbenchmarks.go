// Package benchmarks holds RV32 microbenchmarks that exercise one pipeline
// behavior each, and a harness that runs them through the timing core.
package benchmarks

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// Benchmark is a self-checking program. It leaves its result in a0 and exits.
type Benchmark struct {
	Name        string
	Description string
	Program     []uint32
	ExpectedA0  uint32
}

func exit() []uint32 {
	return []uint32{
		insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallExitLinux),
		insts.ECALL(),
	}
}

func withExit(words ...uint32) []uint32 {
	return append(words, exit()...)
}

// Microbenchmarks returns every microbenchmark.
func Microbenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchLoop(),
		multiplyChain(),
	}
}

// arithmeticSequential rotates through five registers so that no
// instruction reads a result still in flight.
func arithmeticSequential() Benchmark {
	regs := []insts.Reg{insts.RegA0, insts.RegT0, insts.RegT1, insts.RegT2, insts.RegS0}

	var prog []uint32
	for i := 0; i < 20; i++ {
		r := regs[i%len(regs)]
		prog = append(prog, insts.ADDI(r, r, 1))
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent additions, no hazards",
		Program:     withExit(prog...),
		ExpectedA0:  4,
	}
}

func dependencyChain() Benchmark {
	var prog []uint32
	for i := 0; i < 20; i++ {
		prog = append(prog, insts.ADDI(insts.RegA0, insts.RegA0, 1))
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 additions each reading the previous result",
		Program:     withExit(prog...),
		ExpectedA0:  20,
	}
}

// memorySequential bounces a value through memory so every store reads the
// load right before it.
func memorySequential() Benchmark {
	prog := []uint32{
		insts.LUI(insts.RegS0, 8),
		insts.ADDI(insts.RegA0, insts.RegZero, 42),
	}
	for i := int32(0); i < 10; i++ {
		prog = append(prog,
			insts.SW(insts.RegA0, insts.RegS0, 4*i),
			insts.LW(insts.RegA0, insts.RegS0, 4*i),
		)
	}

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs with a load-use dependency between pairs",
		Program:     withExit(prog...),
		ExpectedA0:  42,
	}
}

func functionCalls() Benchmark {
	var prog []uint32
	for i := int32(0); i < 5; i++ {
		prog = append(prog, insts.JAL(insts.RegRA, (6-i)*4))
	}
	prog = append(prog,
		insts.JAL(insts.RegZero, 12),
		// add_one
		insts.ADDI(insts.RegA0, insts.RegA0, 1),
		insts.JALR(insts.RegZero, insts.RegRA, 0),
	)

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a function that increments a0",
		Program:     withExit(prog...),
		ExpectedA0:  5,
	}
}

func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "a 10-iteration counted loop closed by a backward bne",
		Program: withExit(
			insts.ADDI(insts.RegT0, insts.RegZero, 10),
			insts.ADDI(insts.RegA0, insts.RegA0, 1),
			insts.ADDI(insts.RegT0, insts.RegT0, -1),
			insts.BNE(insts.RegT0, insts.RegZero, -8),
		),
		ExpectedA0: 10,
	}
}

func multiplyChain() Benchmark {
	prog := []uint32{
		insts.ADDI(insts.RegT0, insts.RegZero, 3),
		insts.ADDI(insts.RegA0, insts.RegZero, 1),
	}
	for i := 0; i < 5; i++ {
		prog = append(prog, insts.MUL(insts.RegA0, insts.RegA0, insts.RegT0))
	}

	return Benchmark{
		Name:        "multiply_chain",
		Description: "5 dependent multiplications, each paying the multiply latency",
		Program:     withExit(prog...),
		ExpectedA0:  243,
	}
}
