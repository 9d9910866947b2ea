package cache

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
)

// CachedMemory puts a Cache in front of emu.Memory and implements emu.Port.
// Accesses that straddle a line boundary are split into byte accesses; only
// the first byte's latency is reported.
type CachedMemory struct {
	cache  *Cache
	memory *emu.Memory
}

// NewCachedMemory creates a cached view of memory.
func NewCachedMemory(config Config, memory *emu.Memory) (*CachedMemory, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	return &CachedMemory{
		cache:  New(config, NewMemoryBacking(memory)),
		memory: memory,
	}, nil
}

// Cache returns the underlying cache.
func (m *CachedMemory) Cache() *Cache {
	return m.cache
}

// Memory returns the backing memory.
func (m *CachedMemory) Memory() *emu.Memory {
	return m.memory
}

// Flush writes every dirty line back to memory.
func (m *CachedMemory) Flush() {
	m.cache.Flush()
}

func (m *CachedMemory) check(addr uint32, size int) error {
	if uint64(addr)+uint64(size) > m.memory.Size() {
		return fmt.Errorf("%w: 0x%x (%d bytes)", emu.ErrOutOfRange, addr, size)
	}
	return nil
}

func (m *CachedMemory) read(addr uint32, size int) (uint32, int, error) {
	if err := m.check(addr, size); err != nil {
		return 0, 0, err
	}

	if m.cache.Contains(addr, size) {
		r := m.cache.Read(addr, size)
		return r.Data, int(r.Latency), nil
	}

	var (
		v       uint32
		latency int
	)
	for i := 0; i < size; i++ {
		r := m.cache.Read(addr+uint32(i), 1)
		if i == 0 {
			latency = int(r.Latency)
		}
		v |= r.Data << (8 * i)
	}
	return v, latency, nil
}

func (m *CachedMemory) write(addr uint32, size int, value uint32) (int, error) {
	if err := m.check(addr, size); err != nil {
		return 0, err
	}

	if m.cache.Contains(addr, size) {
		return int(m.cache.Write(addr, size, value).Latency), nil
	}

	latency := 0
	for i := 0; i < size; i++ {
		r := m.cache.Write(addr+uint32(i), 1, value>>(8*i))
		if i == 0 {
			latency = int(r.Latency)
		}
	}
	return latency, nil
}

// Read8 reads a byte through the cache.
func (m *CachedMemory) Read8(addr uint32) (uint8, int, error) {
	v, latency, err := m.read(addr, 1)
	return uint8(v), latency, err
}

// Read16 reads a halfword through the cache.
func (m *CachedMemory) Read16(addr uint32) (uint16, int, error) {
	v, latency, err := m.read(addr, 2)
	return uint16(v), latency, err
}

// Read32 reads a word through the cache.
func (m *CachedMemory) Read32(addr uint32) (uint32, int, error) {
	return m.read(addr, 4)
}

// Write8 writes a byte through the cache.
func (m *CachedMemory) Write8(addr uint32, value uint8) (int, error) {
	return m.write(addr, 1, uint32(value))
}

// Write16 writes a halfword through the cache.
func (m *CachedMemory) Write16(addr uint32, value uint16) (int, error) {
	return m.write(addr, 2, uint32(value))
}

// Write32 writes a word through the cache.
func (m *CachedMemory) Write32(addr uint32, value uint32) (int, error) {
	return m.write(addr, 4, value)
}
