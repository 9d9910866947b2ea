package core_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
)

func image(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func program(words ...uint32) *loader.Program {
	code := image(words...)
	return &loader.Program{
		EntryPoint: 0x1000,
		Segments: []loader.Segment{
			{VirtAddr: 0x1000, Data: code, MemSize: uint32(len(code))},
		},
	}
}

var exit = []uint32{
	insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallExitLinux),
	insts.ECALL(),
}

// storeLoad stores 42 at 0x3000, reads it back into t1 and exits.
var storeLoad = append([]uint32{
	insts.ADDI(insts.RegT0, insts.RegZero, 42),
	insts.LUI(insts.RegS0, 3),
	insts.SW(insts.RegT0, insts.RegS0, 0),
	insts.LW(insts.RegT1, insts.RegS0, 0),
}, exit...)

var _ = Describe("Core", func() {
	var (
		cfg *config.Config
		out *bytes.Buffer
	)

	BeforeEach(func() {
		cfg = config.Default()
		out = new(bytes.Buffer)
	})

	build := func(prog *loader.Program) *core.Core {
		c, err := core.New(cfg, prog, core.WithStdout(out), core.WithStdin(bytes.NewReader(nil)))
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	It("should load and run a program", func() {
		c := build(program(append([]uint32{
			insts.ADDI(insts.RegA0, insts.RegZero, 7),
			insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallPrintInt),
			insts.ECALL(),
		}, exit...)...))

		Expect(c.Pipeline.PC()).To(Equal(uint32(0x1000)))
		Expect(c.Halted()).To(BeFalse())

		code, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(BeZero())
		Expect(c.Halted()).To(BeTrue())
		Expect(out.String()).To(Equal("7Program exit from an exit() system call\n"))
		Expect(c.Stats().Instructions).To(Equal(uint64(5)))
		Expect(c.Stats().Cache).To(BeNil())
	})

	It("should apply the configuration", func() {
		cfg.DataForwarding = false
		cfg.Predictor = "btfnt"
		cfg.StackBase = 0x40000000

		c := build(program(exit...))

		Expect(c.Pipeline.Forwarding()).To(BeFalse())
		Expect(c.Pipeline.Predictor().StrategyName()).To(Equal("Back Taken Forward Not Taken"))
		Expect(c.RegFile().ReadReg(insts.RegSP)).To(Equal(uint32(0x40000000)))
		Expect(c.Cache()).To(BeNil())
	})

	It("should keep its own copy of the configuration", func() {
		c := build(program(exit...))
		cfg.Predictor = "AT"
		Expect(c.Config().Predictor).To(Equal("BPB"))
	})

	It("should reject an invalid configuration", func() {
		cfg.Predictor = "oracle"
		_, err := core.New(cfg, program(exit...))
		Expect(err).To(MatchError(ContainSubstring("invalid config")))
	})

	It("should reject a program that does not fit", func() {
		cfg.MemorySize = 0x800
		cfg.StackBase = 0x800
		cfg.StackSize = 0x100
		_, err := core.New(cfg, program(exit...))
		Expect(err).To(MatchError(emu.ErrOutOfRange))
	})

	It("should give the same result for every configuration", func() {
		reference := build(program(storeLoad...))
		_, err := reference.Run()
		Expect(err).NotTo(HaveOccurred())

		for _, forwarding := range []bool{true, false} {
			for _, predictor := range []string{"AT", "NT", "BTFNT", "BPB"} {
				cfg.DataForwarding = forwarding
				cfg.Predictor = predictor
				cfg.Cache.Enabled = !forwarding

				c := build(program(storeLoad...))
				_, err := c.Run()
				Expect(err).NotTo(HaveOccurred())
				Expect(c.RegFile().X).To(Equal(reference.RegFile().X),
					"forwarding=%v predictor=%s", forwarding, predictor)
			}
		}
	})

	Context("with the data cache", func() {
		BeforeEach(func() {
			cfg.Cache.Enabled = true
		})

		It("should charge cache latency to the cycle count", func() {
			c := build(program(storeLoad...))
			Expect(c.Cache()).NotTo(BeNil())

			_, err := c.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(c.RegFile().ReadReg(insts.RegT1)).To(Equal(uint32(42)))

			stats := c.Stats()
			Expect(stats.Cache).NotTo(BeNil())
			Expect(stats.Cache.Writes).To(BeNumerically(">", 0))
			Expect(stats.MemoryCycles).To(BeNumerically(">", 0))
			Expect(stats.Cycles).To(BeNumerically(">=", stats.Instructions+4+stats.MemoryCycles))
		})

		It("should only see data accesses", func() {
			c := build(program(storeLoad...))
			_, err := c.Run()
			Expect(err).NotTo(HaveOccurred())

			stats := c.Stats()
			Expect(stats.Cache.Reads).To(Equal(uint64(1)))
			Expect(stats.Cache.Writes).To(Equal(uint64(1)))
		})

		It("should flush dirty lines before dumping", func() {
			c := build(program(storeLoad...))
			_, err := c.Run()
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(c.Dump(&buf)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("  0x3000: 0x2a\n"))

			v, _, err := c.Memory().Read32(0x3000)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(42)))
		})

		It("should print strings through the cache", func() {
			prog := program(append([]uint32{
				insts.LUI(insts.RegA0, 2),
				insts.ADDI(insts.RegA7, insts.RegZero, emu.SyscallPrintString),
				insts.ECALL(),
			}, exit...)...)
			prog.Segments = append(prog.Segments, loader.Segment{
				VirtAddr: 0x2000, Data: []byte("hi\x00"), MemSize: 3,
			})

			c := build(prog)
			_, err := c.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(HavePrefix("hi"))
		})
	})

	It("should stop at the cycle limit", func() {
		cfg.MaxCycles = 50
		c := build(program(insts.JAL(insts.RegZero, 0)))

		_, err := c.Run()
		Expect(err).To(MatchError(core.ErrCycleLimit))
		Expect(c.Halted()).To(BeFalse())
	})

	It("should run a bounded number of cycles", func() {
		c := build(program(insts.JAL(insts.RegZero, 0)))

		running, err := c.RunCycles(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(5)))

		Expect(c.Tick()).To(Succeed())
		Expect(c.Stats().Cycles).To(Equal(uint64(6)))
	})

	It("should write a dump file", func() {
		c := build(program(storeLoad...))
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "dump.txt")
		Expect(c.DumpFile(path)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("0x1000: addi t0,zero,42"))
		Expect(string(data)).To(ContainSubstring("Memory Dump"))
	})
})
