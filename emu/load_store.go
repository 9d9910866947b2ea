package emu

import (
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

// Load performs the memory read of a load kind, extending the result to 32
// bits. It returns the value and the extra cycles the access cost.
func Load(port Port, kind insts.Kind, addr uint32) (uint32, int, error) {
	var (
		v       uint32
		latency int
		err     error
	)

	switch kind.MemLen() {
	case 1:
		var b uint8
		b, latency, err = port.Read8(addr)
		v = uint32(b)
		if kind.SignExtend() {
			v = uint32(int32(int8(b)))
		}
	case 2:
		var h uint16
		h, latency, err = port.Read16(addr)
		v = uint32(h)
		if kind.SignExtend() {
			v = uint32(int32(int16(h)))
		}
	case 4:
		v, latency, err = port.Read32(addr)
	default:
		return 0, 0, fmt.Errorf("%s is not a load", kind)
	}

	if err != nil {
		return 0, latency, fmt.Errorf("%s at 0x%x: %w", kind, addr, err)
	}

	return v, latency, nil
}

// Store performs the memory write of a store kind and returns the extra
// cycles the access cost.
func Store(port Port, kind insts.Kind, addr uint32, value uint32) (int, error) {
	var (
		latency int
		err     error
	)

	switch kind.MemLen() {
	case 1:
		latency, err = port.Write8(addr, uint8(value))
	case 2:
		latency, err = port.Write16(addr, uint16(value))
	case 4:
		latency, err = port.Write32(addr, value)
	default:
		return 0, fmt.Errorf("%s is not a store", kind)
	}

	if err != nil {
		return latency, fmt.Errorf("%s at 0x%x: %w", kind, addr, err)
	}

	return latency, nil
}
