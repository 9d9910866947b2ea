package emu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
)

// PageSize is the allocation granularity of Memory.
const PageSize = 4096

// DefaultMemorySize is the addressable size used when none is configured.
// The last byte of the 32-bit space is not addressable.
const DefaultMemorySize uint64 = 0xFFFFFFFF

// ErrOutOfRange is returned for accesses outside the addressable range.
var ErrOutOfRange = errors.New("address out of range")

// Port is the byte-addressed little-endian memory interface used by the
// pipeline and the emulator. Every access reports the extra cycles it cost.
type Port interface {
	Read8(addr uint32) (uint8, int, error)
	Read16(addr uint32) (uint16, int, error)
	Read32(addr uint32) (uint32, int, error)
	Write8(addr uint32, value uint8) (int, error)
	Write16(addr uint32, value uint16) (int, error)
	Write32(addr uint32, value uint32) (int, error)
}

// Memory is a sparse, paged model of the 32-bit address space. Pages are
// allocated on first write; unallocated bytes read as zero.
type Memory struct {
	size  uint64
	pages map[uint32]*[PageSize]byte
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithMemorySize limits the addressable range to [0, size).
func WithMemorySize(size uint64) MemoryOption {
	return func(m *Memory) {
		m.size = size
	}
}

// NewMemory creates an empty memory.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		size:  DefaultMemorySize,
		pages: make(map[uint32]*[PageSize]byte),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Size returns the addressable size in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

func (m *Memory) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > m.size {
		return fmt.Errorf("%w: 0x%x (%d bytes)", ErrOutOfRange, addr, n)
	}
	return nil
}

func (m *Memory) page(addr uint32, alloc bool) *[PageSize]byte {
	base := addr &^ (PageSize - 1)
	p, ok := m.pages[base]
	if !ok && alloc {
		p = new([PageSize]byte)
		m.pages[base] = p
	}
	return p
}

func (m *Memory) readByte(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(PageSize-1)]
}

func (m *Memory) writeByte(addr uint32, value uint8) {
	m.page(addr, true)[addr&(PageSize-1)] = value
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) (uint8, int, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, 0, err
	}
	return m.readByte(addr), 0, nil
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) (uint16, int, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, 0, err
	}
	return uint16(m.readByte(addr)) | uint16(m.readByte(addr+1))<<8, 0, nil
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) (uint32, int, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, 0, err
	}

	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(m.readByte(addr+i)) << (8 * i)
	}
	return v, 0, nil
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) (int, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	m.writeByte(addr, value)
	return 0, nil
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) (int, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	m.writeByte(addr, uint8(value))
	m.writeByte(addr+1, uint8(value>>8))
	return 0, nil
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) (int, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	for i := uint32(0); i < 4; i++ {
		m.writeByte(addr+i, uint8(value>>(8*i)))
	}
	return 0, nil
}

// CopyFrom copies data into memory starting at dest.
func (m *Memory) CopyFrom(data []byte, dest uint32) error {
	if err := m.check(dest, len(data)); err != nil {
		return fmt.Errorf("copy %d bytes to 0x%x: %w", len(data), dest, err)
	}
	for i, b := range data {
		m.writeByte(dest+uint32(i), b)
	}
	return nil
}

// Pages returns the base addresses of allocated pages in ascending order.
func (m *Memory) Pages() []uint32 {
	bases := make([]uint32, 0, len(m.pages))
	for base := range m.pages {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

// Dump writes every allocated page, one byte per line.
func (m *Memory) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Memory Dump: \n")
	for _, base := range m.Pages() {
		p := m.pages[base]
		fmt.Fprintf(bw, "0x%x-0x%x\n", base, uint64(base)+PageSize)
		for off, b := range p {
			fmt.Fprintf(bw, "  0x%x: 0x%x\n", base+uint32(off), b)
		}
	}

	return bw.Flush()
}
