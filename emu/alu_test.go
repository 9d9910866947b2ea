package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = DescribeTable("ALU",
	func(kind insts.Kind, op1, op2, op3, want int32) {
		Expect(emu.ALU(kind, op1, op2, op3)).To(Equal(want))
	},
	Entry("add wraps", insts.KindADD, int32(math.MaxInt32), int32(1), int32(0), int32(math.MinInt32)),
	Entry("sub", insts.KindSUB, int32(3), int32(5), int32(0), int32(-2)),
	Entry("slt", insts.KindSLT, int32(-1), int32(0), int32(0), int32(1)),
	Entry("sltu", insts.KindSLTU, int32(-1), int32(0), int32(0), int32(0)),
	Entry("sll uses five bits", insts.KindSLL, int32(1), int32(33), int32(0), int32(2)),
	Entry("srl is logical", insts.KindSRL, int32(-8), int32(1), int32(0), int32(0x7FFFFFFC)),
	Entry("sra is arithmetic", insts.KindSRAI, int32(-8), int32(1), int32(0), int32(-4)),
	Entry("mul keeps the low half", insts.KindMUL, int32(0x10000), int32(0x10000), int32(0), int32(0)),
	Entry("mulh keeps the high half", insts.KindMULH, int32(0x10000), int32(0x10000), int32(0), int32(1)),
	Entry("mulh of negatives", insts.KindMULH, int32(-1), int32(1), int32(0), int32(-1)),
	Entry("div truncates", insts.KindDIV, int32(-7), int32(2), int32(0), int32(-3)),
	Entry("div by zero", insts.KindDIV, int32(7), int32(0), int32(0), int32(-1)),
	Entry("div overflow", insts.KindDIV, int32(math.MinInt32), int32(-1), int32(0), int32(math.MinInt32)),
	Entry("rem", insts.KindREM, int32(-7), int32(2), int32(0), int32(-1)),
	Entry("rem by zero", insts.KindREM, int32(7), int32(0), int32(0), int32(7)),
	Entry("rem overflow", insts.KindREM, int32(math.MinInt32), int32(-1), int32(0), int32(0)),
	Entry("fmadd", insts.KindFMADD, int32(3), int32(4), int32(5), int32(17)),
	Entry("fmsub", insts.KindFMSUB, int32(3), int32(4), int32(5), int32(7)),
	Entry("fnmadd", insts.KindFNMADD, int32(3), int32(4), int32(5), int32(-7)),
	Entry("fnmsub", insts.KindFNMSUB, int32(3), int32(4), int32(5), int32(-17)),
)

var _ = Describe("Execute", func() {
	decode := func(word, pc uint32) *insts.Instruction {
		inst, err := insts.NewDecoder().Decode(word, pc)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	It("should compute LUI and AUIPC", func() {
		r := emu.Execute(decode(insts.LUI(5, 0x12345), 0x100), 0x12345, 0, 0)
		Expect(r.Value).To(Equal(uint32(0x12345000)))
		Expect(r.WriteReg).To(BeTrue())

		r = emu.Execute(decode(insts.AUIPC(5, 1), 0x100), 1, 0, 0)
		Expect(r.Value).To(Equal(uint32(0x1100)))
	})

	It("should link and redirect on JAL", func() {
		r := emu.Execute(decode(insts.JAL(1, -8), 0x100), -8, 0, 0)

		Expect(r.Value).To(Equal(uint32(0x104)))
		Expect(r.Redirect).To(BeTrue())
		Expect(r.Target).To(Equal(uint32(0xF8)))
	})

	It("should clear bit zero of a JALR target", func() {
		r := emu.Execute(decode(insts.JALR(1, 5, 3), 0x100), 0x200, 3, 0)

		Expect(r.Target).To(Equal(uint32(0x202)))
	})

	It("should resolve branches", func() {
		inst := decode(insts.BLTU(5, 6, 16), 0x100)

		r := emu.Execute(inst, 1, -1, 0)
		Expect(r.Redirect).To(BeTrue())
		Expect(r.Target).To(Equal(uint32(0x110)))
		Expect(r.WriteReg).To(BeFalse())

		r = emu.Execute(inst, -1, 1, 0)
		Expect(r.Redirect).To(BeFalse())
	})

	It("should compute effective addresses and truncate store data", func() {
		r := emu.Execute(decode(insts.SB(6, 5, -4), 0), 0x104, 0x1FF, 0)

		Expect(r.Addr).To(Equal(uint32(0x100)))
		Expect(r.Value).To(Equal(uint32(0xFF)))
		Expect(r.WriteReg).To(BeFalse())
	})
})
