package emu_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read unallocated bytes as zero", func() {
		v, latency, err := memory.Read32(0x12345678)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())
		Expect(latency).To(BeZero())
		Expect(memory.Pages()).To(BeEmpty())
	})

	It("should store words little-endian", func() {
		_, err := memory.Write32(0x1000, 0xDEADBEEF)
		Expect(err).NotTo(HaveOccurred())

		b, _, _ := memory.Read8(0x1000)
		Expect(b).To(Equal(uint8(0xEF)))
		b, _, _ = memory.Read8(0x1003)
		Expect(b).To(Equal(uint8(0xDE)))
		h, _, _ := memory.Read16(0x1002)
		Expect(h).To(Equal(uint16(0xDEAD)))
	})

	It("should handle accesses straddling a page boundary", func() {
		_, err := memory.Write32(0x1FFE, 0x11223344)
		Expect(err).NotTo(HaveOccurred())

		v, _, err := memory.Read32(0x1FFE)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x11223344)))
		Expect(memory.Pages()).To(Equal([]uint32{0x1000, 0x2000}))
	})

	It("should reject the last byte of the address space", func() {
		_, err := memory.Write8(0xFFFFFFFF, 1)
		Expect(err).To(MatchError(emu.ErrOutOfRange))

		_, _, err = memory.Read32(0xFFFFFFFD)
		Expect(err).To(MatchError(emu.ErrOutOfRange))
	})

	It("should honour a configured size", func() {
		memory = emu.NewMemory(emu.WithMemorySize(0x10000))

		_, err := memory.Write32(0xFFFC, 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = memory.Write32(0xFFFE, 1)
		Expect(err).To(MatchError(emu.ErrOutOfRange))
	})

	It("should copy a program image", func() {
		Expect(memory.CopyFrom([]byte{1, 2, 3, 4}, 0x400)).To(Succeed())

		v, _, _ := memory.Read32(0x400)
		Expect(v).To(Equal(uint32(0x04030201)))
	})

	It("should dump only allocated pages", func() {
		_, _ = memory.Write8(0x3002, 0xAB)

		var buf bytes.Buffer
		Expect(memory.Dump(&buf)).To(Succeed())

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		Expect(lines[0]).To(Equal("Memory Dump: "))
		Expect(lines[1]).To(Equal("0x3000-0x4000"))
		Expect(lines).To(HaveLen(2 + emu.PageSize))
		Expect(lines[2]).To(Equal("  0x3000: 0x0"))
		Expect(lines[4]).To(Equal("  0x3002: 0xab"))
	})
})

var _ = Describe("RegFile", func() {
	It("should read out-of-range registers as zero", func() {
		rf := &emu.RegFile{}
		rf.WriteReg(insts.RegNone, 5)

		Expect(rf.ReadReg(insts.RegNone)).To(BeZero())
	})

	It("should restore x0 on ForceZero", func() {
		rf := &emu.RegFile{}
		rf.WriteReg(insts.RegZero, 9)
		Expect(rf.ReadReg(insts.RegZero)).To(Equal(uint32(9)))

		rf.ForceZero()
		Expect(rf.ReadReg(insts.RegZero)).To(BeZero())
	})
})

var _ = Describe("Load and Store", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should sign-extend signed loads", func() {
		_, err := emu.Store(memory, insts.KindSH, 0x100, 0xFFFF8001)
		Expect(err).NotTo(HaveOccurred())

		v, _, err := emu.Load(memory, insts.KindLH, 0x100)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0xFFFF8001)))

		v, _, err = emu.Load(memory, insts.KindLHU, 0x100)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x8001)))

		v, _, err = emu.Load(memory, insts.KindLB, 0x101)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0xFFFFFF80)))
	})

	It("should wrap memory faults with the access kind", func() {
		_, _, err := emu.Load(memory, insts.KindLW, 0xFFFFFFFE)

		Expect(err).To(MatchError(emu.ErrOutOfRange))
		Expect(err.Error()).To(HavePrefix("lw at 0xfffffffe"))
	})

	It("should refuse non-memory kinds", func() {
		_, err := emu.Store(memory, insts.KindADD, 0, 0)
		Expect(err).To(HaveOccurred())
	})
})
