package cache

import (
	"github.com/sarchlab/rvsim/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore. Bytes of a block that
// fall outside the addressable range read as zero and are never written.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches data from the backing memory.
func (m *MemoryBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		b, _, err := m.memory.Read8(addr + uint32(i))
		if err != nil {
			continue
		}
		data[i] = b
	}
	return data
}

// Write stores data to the backing memory.
func (m *MemoryBacking) Write(addr uint32, data []byte) {
	for i, b := range data {
		// Only bytes that were never addressable can fail here.
		_, _ = m.memory.Write8(addr+uint32(i), b)
	}
}
