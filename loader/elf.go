// Package loader provides program loading for RV32 executables, either as
// ELF files or as raw binary images.
package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rvsim/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultBinaryBase is where raw binary images are placed when no base
// address is given.
const DefaultBinaryBase = 0x0

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Segment represents a loadable segment of a program.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Size returns the number of bytes the program occupies in memory.
func (p *Program) Size() uint64 {
	var n uint64
	for _, seg := range p.Segments {
		n += uint64(seg.MemSize)
	}
	return n
}

// LoadInto copies every segment into memory. The BSS part of a segment is
// left to the zero fill of memory.
func (p *Program) LoadInto(memory *emu.Memory) error {
	for _, seg := range p.Segments {
		if uint64(seg.VirtAddr)+uint64(seg.MemSize) > memory.Size() {
			return fmt.Errorf("segment at 0x%x (%d bytes) does not fit in memory: %w",
				seg.VirtAddr, seg.MemSize, emu.ErrOutOfRange)
		}
		if err := memory.CopyFrom(seg.Data, seg.VirtAddr); err != nil {
			return fmt.Errorf("failed to load segment at 0x%x: %w", seg.VirtAddr, err)
		}
	}
	return nil
}

// Open loads path as an ELF file if it starts with the ELF magic and as a
// raw binary placed at base otherwise.
func Open(path string, base uint32) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(elfMagic))
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	if n == len(elfMagic) && bytes.Equal(magic, elfMagic) {
		return Load(path)
	}
	return LoadBinary(path, base)
}

// LoadBinary reads a raw little-endian instruction image and places it at
// base, which is also the entry point.
func LoadBinary(path string, base uint32) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open binary file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("binary file %s is empty", path)
	}
	if uint64(base)+uint64(len(data)) > 1<<32 {
		return nil, fmt.Errorf("binary file %s does not fit above 0x%x", path, base)
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// Load parses an RV32 ELF executable.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}
		if phdr.Filesz > phdr.Memsz {
			return nil, fmt.Errorf("segment at 0x%x has file size %d larger than memory size %d",
				phdr.Vaddr, phdr.Filesz, phdr.Memsz)
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}
