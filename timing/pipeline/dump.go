package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/rvsim/insts"
)

// MemoryDumper is memory that can write a listing of its contents.
type MemoryDumper interface {
	Dump(w io.Writer) error
}

// Snapshot is a copy of the diagnostic state of a pipeline.
type Snapshot struct {
	Cycle      uint64
	PC         uint32
	Regs       [insts.NumRegs]uint32
	Stats      Statistics
	Strategy   string
	Err        error
	Insts      []TraceEntry
	RegHistory []RegSnapshot
}

// Snapshot returns the current diagnostic state. The pipeline keeps
// running unaffected.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Cycle:      p.stats.Cycles,
		PC:         p.pc,
		Regs:       p.regFile.Snapshot(),
		Stats:      p.stats,
		Strategy:   p.predictor.StrategyName(),
		Err:        p.err,
		Insts:      append([]TraceEntry(nil), p.history.Insts()...),
		RegHistory: append([]RegSnapshot(nil), p.history.Regs()...),
	}
}

// WriteState writes the register file in the CPU STATE layout.
func WriteState(w io.Writer, pc uint32, regs [insts.NumRegs]uint32) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "------------ CPU STATE ------------\n")
	fmt.Fprintf(bw, "PC: 0x%x\n", pc)
	for i, v := range regs {
		fmt.Fprintf(bw, "%s: 0x%.8x(%d) ", insts.Reg(i), v, int32(v))
		if i%4 == 3 {
			fmt.Fprintf(bw, "\n")
		}
	}
	fmt.Fprintf(bw, "-----------------------------------\n")

	return bw.Flush()
}

// WriteStatistics writes the end-of-run statistics report.
func WriteStatistics(w io.Writer, stats Statistics, strategy string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "------------ STATISTICS -----------\n")
	fmt.Fprintf(bw, "Number of Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(bw, "Number of Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(bw, "Avg Cycles per Instruction: %.4f\n", stats.CPI())
	fmt.Fprintf(bw, "Branch Prediction Accuracy: %.4f (Strategy: %s)\n",
		stats.BranchAccuracy(), strategy)
	fmt.Fprintf(bw, "Number of Control Hazards: %d\n", stats.ControlHazards)
	fmt.Fprintf(bw, "Number of Data Hazards: %d\n", stats.DataHazards)
	fmt.Fprintf(bw, "Number of Memory Hazards: %d\n", stats.MemoryHazards)
	fmt.Fprintf(bw, "-----------------------------------\n")

	return bw.Flush()
}

// WriteDump writes the execution history of s followed by a memory dump.
// Each decoded instruction is paired with the register snapshot at the same
// position in the history.
func WriteDump(w io.Writer, s Snapshot, memory MemoryDumper) error {
	fmt.Fprintf(w, "================== Execution History ==================\n")
	for i, e := range s.Insts {
		fmt.Fprintf(w, "0x%x: %s\n", e.PC, e.Text)
		if i < len(s.RegHistory) {
			r := s.RegHistory[i]
			if err := WriteState(w, r.PC, r.Regs); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "========================================================\n\n")

	fmt.Fprintf(w, "====================== Memory Dump ======================\n")
	if memory != nil {
		if err := memory.Dump(w); err != nil {
			return fmt.Errorf("dump memory: %w", err)
		}
	}
	_, err := fmt.Fprintf(w, "=========================================================\n\n")
	return err
}
