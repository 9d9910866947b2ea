package pipeline

import (
	"fmt"
	"strings"

	"github.com/sarchlab/rvsim/insts"
)

// BranchPredictor guesses conditional branch outcomes at decode and learns
// from the outcome resolved at execute.
type BranchPredictor interface {
	// Predict returns true if the branch at pc is guessed taken. op1 and op2
	// are the operand values seen at decode.
	Predict(pc uint32, kind insts.Kind, op1, op2, offset int32) bool

	// Update reports the resolved outcome of the branch at pc.
	Update(pc uint32, taken bool)

	// StrategyName returns a human-readable strategy name.
	StrategyName() string
}

// Predictor strategy keys accepted by NewBranchPredictor.
const (
	StrategyAlwaysTaken    = "AT"
	StrategyAlwaysNotTaken = "NT"
	StrategyBTFNT          = "BTFNT"
	StrategyBuffer         = "BPB"
)

// NewBranchPredictor creates a predictor from its strategy key. The key is
// case-insensitive.
func NewBranchPredictor(strategy string) (BranchPredictor, error) {
	switch strings.ToUpper(strategy) {
	case StrategyAlwaysTaken:
		return AlwaysTaken{}, nil
	case StrategyAlwaysNotTaken:
		return AlwaysNotTaken{}, nil
	case StrategyBTFNT:
		return BackwardTaken{}, nil
	case StrategyBuffer:
		return NewBufferPredictor(DefaultBufferPredictorConfig()), nil
	}
	return nil, fmt.Errorf("unknown branch prediction strategy %q", strategy)
}

// AlwaysTaken predicts every branch taken.
type AlwaysTaken struct{}

// Predict implements BranchPredictor.
func (AlwaysTaken) Predict(uint32, insts.Kind, int32, int32, int32) bool { return true }

// Update implements BranchPredictor.
func (AlwaysTaken) Update(uint32, bool) {}

// StrategyName implements BranchPredictor.
func (AlwaysTaken) StrategyName() string { return "Always Taken" }

// AlwaysNotTaken predicts every branch not taken.
type AlwaysNotTaken struct{}

// Predict implements BranchPredictor.
func (AlwaysNotTaken) Predict(uint32, insts.Kind, int32, int32, int32) bool { return false }

// Update implements BranchPredictor.
func (AlwaysNotTaken) Update(uint32, bool) {}

// StrategyName implements BranchPredictor.
func (AlwaysNotTaken) StrategyName() string { return "Always Not Taken" }

// BackwardTaken predicts backward branches (loops) taken and forward
// branches not taken.
type BackwardTaken struct{}

// Predict implements BranchPredictor.
func (BackwardTaken) Predict(_ uint32, _ insts.Kind, _, _, offset int32) bool {
	return offset < 0
}

// Update implements BranchPredictor.
func (BackwardTaken) Update(uint32, bool) {}

// StrategyName implements BranchPredictor.
func (BackwardTaken) StrategyName() string { return "Back Taken Forward Not Taken" }

// BufferPredictorConfig holds configuration for the branch prediction buffer.
type BufferPredictorConfig struct {
	// Entries is the number of 2-bit counters. Must be a power of 2.
	// Default is 4096.
	Entries uint32
}

// DefaultBufferPredictorConfig returns a default configuration.
func DefaultBufferPredictorConfig() BufferPredictorConfig {
	return BufferPredictorConfig{
		Entries: 4096,
	}
}

// BufferPredictorStats holds statistics for the branch prediction buffer.
type BufferPredictorStats struct {
	// Predictions is the total number of branch predictions made.
	Predictions uint64
	// Correct is the number of updates that agreed with the counter.
	Correct uint64
	// Mispredictions is the number of updates that disagreed with it.
	Mispredictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BufferPredictorStats) Accuracy() float64 {
	total := s.Correct + s.Mispredictions
	if total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(total) * 100
}

// BufferPredictor implements a branch prediction buffer of 2-bit saturating
// counters indexed by PC.
type BufferPredictor struct {
	// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
	//         2=Weakly Taken, 3=Strongly Taken
	counters []uint8
	entries  uint32

	stats BufferPredictorStats
}

// NewBufferPredictor creates a new branch prediction buffer.
func NewBufferPredictor(config BufferPredictorConfig) *BufferPredictor {
	entries := config.Entries
	if entries == 0 || entries&(entries-1) != 0 {
		entries = 4096
	}

	bp := &BufferPredictor{
		counters: make([]uint8, entries),
		entries:  entries,
	}
	bp.Reset()

	return bp
}

func (bp *BufferPredictor) index(pc uint32) uint32 {
	return (pc >> 2) & (bp.entries - 1)
}

// Predict implements BranchPredictor.
func (bp *BufferPredictor) Predict(pc uint32, _ insts.Kind, _, _, _ int32) bool {
	bp.stats.Predictions++
	return bp.counters[bp.index(pc)] >= 2
}

// Update implements BranchPredictor.
func (bp *BufferPredictor) Update(pc uint32, taken bool) {
	idx := bp.index(pc)
	counter := bp.counters[idx]

	if (counter >= 2) == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}

	if taken {
		if counter < 3 {
			bp.counters[idx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.counters[idx] = counter - 1
		}
	}
}

// StrategyName implements BranchPredictor.
func (bp *BufferPredictor) StrategyName() string { return "Branch Prediction Buffer" }

// Stats returns the buffer statistics.
func (bp *BufferPredictor) Stats() BufferPredictorStats {
	return bp.stats
}

// Reset sets every counter to weakly taken and clears statistics.
func (bp *BufferPredictor) Reset() {
	for i := range bp.counters {
		bp.counters[i] = 2
	}
	bp.stats = BufferPredictorStats{}
}
