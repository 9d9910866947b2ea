package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/cache"
)

func read32(memory *emu.Memory, addr uint32) uint32 {
	v, _, err := memory.Read32(addr)
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		// Small cache for testing: 4KB, 4-way, 64B lines
		config := cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}
		c = cache.New(config, backing)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			_, _ = memory.Write32(0x1000, 0xDEADBEEF)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			_, _ = memory.Write32(0x1000, 0xCAFEBABE)

			c.Read(0x1000, 4)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint32(0xCAFEBABE)))
			Expect(c.Stats().HitRate()).To(Equal(0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			_, _ = memory.Write32(0x1000, 0x11111111)
			_, _ = memory.Write32(0x1004, 0x22222222)

			c.Read(0x1000, 4)

			result := c.Read(0x1004, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x22222222)))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x1000, 4, 0x12345678)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			readResult := c.Read(0x1000, 4)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint32(0x12345678)))
		})

		It("should not write through", func() {
			c.Write(0x1000, 4, 0x11111111)

			Expect(read32(memory, 0x1000)).To(BeZero())
		})
	})

	Describe("Eviction", func() {
		// 4KB / (4 ways * 64B) = 16 sets; addresses 1KB apart share a set.
		fillSetZero := func() {
			c.Write(0x0000, 4, 0x11111111)
			c.Write(0x0400, 4, 0x22222222)
			c.Write(0x0800, 4, 0x33333333)
			c.Write(0x0C00, 4, 0x44444444)
		}

		It("should evict when the set is full", func() {
			fillSetZero()

			Expect(c.Read(0x0000, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0C00, 4).Hit).To(BeTrue())

			result := c.Write(0x1000, 4, 0x55555555)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back the least recently used dirty block", func() {
			fillSetZero()

			c.Read(0x0400, 4)
			c.Read(0x0800, 4)
			c.Read(0x0C00, 4)

			result := c.Write(0x1000, 4, 0x55555555)

			Expect(result.EvictedAddr).To(Equal(uint32(0x0000)))
			Expect(read32(memory, 0x0000)).To(Equal(uint32(0x11111111)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			c.Write(0x0000, 4, 0x11111111)
			c.Write(0x1000, 4, 0x22222222)

			c.Flush()

			Expect(read32(memory, 0x0000)).To(Equal(uint32(0x11111111)))
			Expect(read32(memory, 0x1000)).To(Equal(uint32(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
		})
	})

	Describe("Config", func() {
		It("should accept the default", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})

		It("should reject a partial set", func() {
			config := cache.DefaultConfig()
			config.Size = 1000
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject a non power of two block", func() {
			config := cache.DefaultConfig()
			config.BlockSize = 48
			Expect(config.Validate()).NotTo(Succeed())
		})
	})
})

var _ = Describe("CachedMemory", func() {
	var (
		memory *emu.Memory
		port   *cache.CachedMemory
	)

	BeforeEach(func() {
		memory = emu.NewMemory(emu.WithMemorySize(0x10000))

		var err error
		port, err = cache.NewCachedMemory(cache.Config{
			Size:          1024,
			Associativity: 2,
			BlockSize:     16,
			HitLatency:    1,
			MissLatency:   8,
		}, memory)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should report miss then hit latency", func() {
		_, latency, err := port.Read32(0x100)
		Expect(err).NotTo(HaveOccurred())
		Expect(latency).To(Equal(8))

		_, latency, err = port.Read16(0x104)
		Expect(err).NotTo(HaveOccurred())
		Expect(latency).To(Equal(1))
	})

	It("should split accesses that straddle a line", func() {
		_, err := port.Write32(0x10E, 0xA1B2C3D4)
		Expect(err).NotTo(HaveOccurred())

		v, latency, err := port.Read32(0x10E)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0xA1B2C3D4)))
		Expect(latency).To(Equal(1))

		port.Flush()
		Expect(read32(memory, 0x10E)).To(Equal(uint32(0xA1B2C3D4)))
	})

	It("should reject out-of-range accesses before touching the cache", func() {
		_, _, err := port.Read32(0xFFFE)
		Expect(err).To(MatchError(emu.ErrOutOfRange))

		_, err = port.Write8(0x10000, 1)
		Expect(err).To(MatchError(emu.ErrOutOfRange))
		Expect(port.Cache().Stats().Reads + port.Cache().Stats().Writes).To(BeZero())
	})

	It("should refuse an invalid geometry", func() {
		_, err := cache.NewCachedMemory(cache.Config{Size: 100, Associativity: 3, BlockSize: 16}, memory)
		Expect(err).To(HaveOccurred())
	})
})
