package emu_test

import (
	"bytes"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

func program(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func exitSequence() []uint32 {
	return []uint32{
		insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallExitLinux),
		insts.ECALL(),
	}
}

var _ = Describe("Emulator", func() {
	var (
		memory *emu.Memory
		stdout *bytes.Buffer
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		stdout = new(bytes.Buffer)
	})

	load := func(words ...uint32) *emu.Emulator {
		Expect(memory.CopyFrom(program(words...), 0x1000)).To(Succeed())
		return emu.NewEmulator(memory, 0x1000,
			emu.WithStdout(stdout),
			emu.WithStackPointer(0x80000000),
			emu.WithMaxInstructions(10000),
		)
	}

	It("should sum a counted loop", func() {
		words := []uint32{
			insts.ADDI(insts.RegT0, insts.RegZero, 10), // t0 = 10
			insts.ADDI(insts.RegT1, insts.RegZero, 0),  // t1 = 0
			insts.ADD(insts.RegT1, insts.RegT1, insts.RegT0),
			insts.ADDI(insts.RegT0, insts.RegT0, -1),
			insts.BNE(insts.RegT0, insts.RegZero, -8),
		}
		e := load(append(words, exitSequence()...)...)

		Expect(e.Run()).To(Succeed())
		Expect(e.RegFile().ReadReg(insts.RegT1)).To(Equal(uint32(55)))
		Expect(e.InstructionCount()).To(Equal(uint64(2 + 3*10 + 2)))
	})

	It("should call and return through the stack", func() {
		words := []uint32{
			insts.ADDI(insts.RegSP, insts.RegSP, -16),
			insts.ADDI(insts.RegA0, insts.RegZero, 21),
			insts.SW(insts.RegA0, insts.RegSP, 4),
			insts.JAL(insts.RegRA, 16), // call double
			insts.LW(insts.RegA1, insts.RegSP, 4),
			insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallExitLinux),
			insts.ECALL(),
			// double:
			insts.ADD(insts.RegA0, insts.RegA0, insts.RegA0),
			insts.JALR(insts.RegZero, insts.RegRA, 0),
		}
		e := load(words...)

		Expect(e.Run()).To(Succeed())
		Expect(e.RegFile().ReadReg(insts.RegA0)).To(Equal(uint32(42)))
		Expect(e.RegFile().ReadReg(insts.RegA1)).To(Equal(uint32(21)))
		Expect(e.RegFile().ReadReg(insts.RegSP)).To(Equal(uint32(0x80000000 - 16)))
	})

	It("should keep x0 at zero", func() {
		e := load(append([]uint32{insts.ADDI(insts.RegZero, insts.RegZero, 5)}, exitSequence()...)...)

		Expect(e.Run()).To(Succeed())
		Expect(e.RegFile().ReadReg(insts.RegZero)).To(BeZero())
	})

	It("should print through the system-call handler", func() {
		words := []uint32{
			insts.ADDI(insts.RegA0, insts.RegZero, 7),
			insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallPrintInt),
			insts.ECALL(),
		}
		e := load(append(words, exitSequence()...)...)

		Expect(e.Run()).To(Succeed())
		Expect(stdout.String()).To(HavePrefix("7"))
	})

	It("should stop on an undecodable word", func() {
		e := load(0xFFFFFFFF)

		Expect(e.Run()).To(MatchError(insts.ErrUnknownInstruction))
	})

	It("should stop at the instruction limit", func() {
		e := load(insts.JAL(insts.RegZero, 0))

		Expect(e.Run()).To(MatchError(emu.ErrMaxInstructions))
	})
})
