package pipeline

import (
	"github.com/sarchlab/rvsim/insts"
)

// Tier ranks a forwarding source. A lower tier holds a younger, fresher
// value and wins when two stages offer the same register.
type Tier int

const (
	// TierNone means the stage has nothing to offer this cycle.
	TierNone Tier = iota
	// TierExecute is the result computed by the execute stage.
	TierExecute
	// TierMemory is the result leaving the memory stage.
	TierMemory
	// TierWriteback is the result being committed by write-back.
	TierWriteback
)

// Stall lengths requested per tier when forwarding is disabled, and the
// fixed load-use freeze applied when it is enabled.
const (
	executeStall = 3
	memoryStall  = 2
	writeStall   = 1
	loadUseStall = 2
)

// ForwardOffer is a register result a stage can bypass into the decode
// register this cycle.
type ForwardOffer struct {
	Tier  Tier
	Reg   insts.Reg
	Value int32

	// Pending is set for a load in the execute stage: the register is
	// claimed but its value is not known yet.
	Pending bool
}

func (o ForwardOffer) active() bool {
	return o.Tier != TierNone && o.Reg.Valid() && o.Reg != insts.RegZero
}

// HazardResult is the merged hazard decision for one cycle.
type HazardResult struct {
	// Stall is the stall length claimed this cycle, 0 to 3.
	Stall int

	// LoadUse is set when a load feeds the instruction just decoded and
	// forwarding is enabled.
	LoadUse bool

	// Forwarded records which tier supplied each decode operand.
	Forwarded [3]Tier

	DataHazards   uint64
	MemoryHazards uint64
}

// HazardUnit merges the forward offers and stall requests of the execute,
// memory and write-back stages.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a new hazard unit.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding returns true if results are bypassed instead of stalled on.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// Resolve applies this cycle's offers to next, the decode register about to
// latch. frozen is the current decode register when it is stalled and nil
// otherwise; it only receives values from the memory tier, which is where a
// load that caused the freeze sits one cycle later. offers must be ordered
// execute, memory, write-back. control reports a control hazard this cycle.
func (h *HazardUnit) Resolve(
	next *DecodeRegister,
	frozen *DecodeRegister,
	offers []ForwardOffer,
	control bool,
) HazardResult {
	if h.forwarding {
		return h.forward(next, frozen, offers)
	}
	return h.stall(next, offers, control)
}

func (h *HazardUnit) forward(
	next *DecodeRegister,
	frozen *DecodeRegister,
	offers []ForwardOffer,
) HazardResult {
	var result HazardResult

	if !next.Bubble {
		for slot, src := range next.Src {
			if !src.Valid() {
				continue
			}
			for _, o := range offers {
				if !o.active() || o.Reg != src {
					continue
				}
				if o.Pending {
					result.LoadUse = true
				} else {
					next.Ops[slot] = o.Value
					result.Forwarded[slot] = o.Tier
					result.DataHazards++
				}
				break
			}
		}
	}

	if result.LoadUse {
		result.MemoryHazards++
	}

	if frozen != nil {
		for _, o := range offers {
			if o.Tier != TierMemory || !o.active() || !frozen.Reads(o.Reg) {
				continue
			}
			for slot, src := range frozen.Src {
				if src == o.Reg {
					frozen.Ops[slot] = o.Value
				}
			}
			result.DataHazards++
		}
	}

	return result
}

func (h *HazardUnit) stall(
	next *DecodeRegister,
	offers []ForwardOffer,
	control bool,
) HazardResult {
	var result HazardResult

	for _, o := range offers {
		if !o.active() || !next.Reads(o.Reg) {
			continue
		}

		switch o.Tier {
		case TierExecute:
			result.Stall = executeStall
			if o.Pending {
				result.MemoryHazards++
				continue
			}
			for _, src := range next.Src {
				if src == o.Reg {
					result.DataHazards++
				}
			}

		case TierMemory, TierWriteback:
			if result.Stall != 0 || control {
				continue
			}
			result.Stall = memoryStall
			if o.Tier == TierWriteback {
				result.Stall = writeStall
			}
			result.DataHazards++
		}
	}

	return result
}
