package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should name every kind", func() {
		for _, k := range insts.Kinds() {
			Expect(k.String()).NotTo(Equal("unknown"), "kind %d", k)
		}
		Expect(insts.Kinds()).To(HaveLen(46))
	})

	It("should classify kinds", func() {
		Expect(insts.KindBEQ.IsBranch()).To(BeTrue())
		Expect(insts.KindJALR.IsJump()).To(BeTrue())
		Expect(insts.KindJALR.IsBranch()).To(BeFalse())
		Expect(insts.KindLBU.IsLoad()).To(BeTrue())
		Expect(insts.KindSH.IsStore()).To(BeTrue())
		Expect(insts.KindFNMSUB.IsMultiply()).To(BeTrue())
		Expect(insts.KindMULH.IsMultiply()).To(BeTrue())
		Expect(insts.KindDIV.IsMultiply()).To(BeFalse())
	})

	It("should know which kinds write a register", func() {
		Expect(insts.KindADD.WritesReg()).To(BeTrue())
		Expect(insts.KindJAL.WritesReg()).To(BeTrue())
		Expect(insts.KindECALL.WritesReg()).To(BeTrue())
		Expect(insts.KindBNE.WritesReg()).To(BeFalse())
		Expect(insts.KindSW.WritesReg()).To(BeFalse())
		Expect(insts.KindUnknown.WritesReg()).To(BeFalse())
	})

	It("should fall back to unknown for out-of-range kinds", func() {
		Expect(insts.Kind(200).String()).To(Equal("unknown"))
	})

	It("should use ABI register names", func() {
		Expect(insts.Reg(0).String()).To(Equal("zero"))
		Expect(insts.RegSP.String()).To(Equal("sp"))
		Expect(insts.Reg(18).String()).To(Equal("s2"))
		Expect(insts.Reg(31).String()).To(Equal("t6"))
		Expect(insts.RegNone.Valid()).To(BeFalse())
	})
})

var _ = DescribeTable("Disassembly text",
	func(word uint32, text string) {
		inst, err := insts.NewDecoder().Decode(word, 0x200)
		Expect(err).NotTo(HaveOccurred())
		Expect(inst.Text()).To(Equal(text))
	},
	Entry("R-type", uint32(0x007302B3), "add t0,t1,t2"),
	Entry("I-type", uint32(0x00A00293), "addi t0,zero,10"),
	Entry("shift", uint32(0x4032D293), "srai t0,t0,3"),
	Entry("lui", uint32(0x123452B7), "lui t0,74565"),
	Entry("jal", uint32(0x008000EF), "jal ra,8"),
	Entry("jalr", uint32(0x00008067), "jalr zero,ra,0"),
	Entry("branch", uint32(0x00000463), "beq zero,zero,8"),
	Entry("store", uint32(0x00512223), "sw t0,4(sp)"),
	Entry("load", uint32(0x00412283), "lw t0,4(sp)"),
	Entry("ecall", uint32(0x00000073), "ecall"),
	Entry("fused", insts.FMADD(10, 11, 12, 13), "fmadd a0,a1,a2,a3"),
)

var _ = Describe("Instruction String", func() {
	It("should prefix the address", func() {
		inst, err := insts.NewDecoder().Decode(0x00A00293, 0x1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(inst.String()).To(Equal("0x1000: addi t0,zero,10"))
	})
})
