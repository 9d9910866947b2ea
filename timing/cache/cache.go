// Package cache provides an optional data cache model using Akita cache
// components.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in extra cycles
	HitLatency uint64
	// MissLatency in extra cycles (includes memory access time)
	MissLatency uint64
}

// DefaultConfig returns the default data cache configuration: 16KB, 4-way,
// 64B lines.
func DefaultConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// Validate checks that the geometry describes a whole number of sets.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block size must be positive")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("cache block size %d is not a power of two", c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of associativity*block size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of extra cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations).
	Data uint32
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Cache is a write-back, write-allocate cache built on an Akita directory.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits over all accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint32, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint32, data []byte)
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

// Contains reports whether [addr, addr+size) lies within one cache line.
func (c *Cache) Contains(addr uint32, size int) bool {
	return c.blockAddr(addr) == c.blockAddr(addr+uint32(size-1))
}

// Read performs a cache read of size bytes (at most 4, within one line).
func (c *Cache) Read(addr uint32, size int) AccessResult {
	c.stats.Reads++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint32(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(blockData, offset, size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write operation.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint32, size int, data uint32) AccessResult {
	c.stats.Writes++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint32(c.config.BlockSize)
		storeData(c.dataStore[c.blockIndex(block)], offset, size, data)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

func (c *Cache) handleMiss(addr uint32, size int, isWrite bool, writeData uint32) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(uint64(blockAddr))
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(uint32(victim.Tag), victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		clear(victimData)
	}

	// The tag holds the block-aligned address.
	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr % uint32(c.config.BlockSize)
	if isWrite {
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)

	return result
}

// Invalidate marks a cache line as invalid without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func extractData(data []byte, offset uint32, size int) uint32 {
	if int(offset)+size > len(data) {
		return 0
	}

	var result uint32
	for i := 0; i < size; i++ {
		result |= uint32(data[int(offset)+i]) << (i * 8)
	}
	return result
}

func storeData(data []byte, offset uint32, size int, value uint32) {
	if int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
