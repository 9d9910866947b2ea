package benchmarks

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
)

// Result holds the timing of one benchmark run.
type Result struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Cycles       uint64  `json:"cycles"`
	Instructions uint64  `json:"instructions"`
	CPI          float64 `json:"cpi"`
	Stalls       uint64  `json:"stalls"`

	DataHazards    uint64 `json:"data_hazards"`
	ControlHazards uint64 `json:"control_hazards"`
	MemoryHazards  uint64 `json:"memory_hazards"`

	BranchCorrect        uint64 `json:"branch_correct"`
	BranchMispredictions uint64 `json:"branch_mispredictions"`

	CacheHits   uint64 `json:"cache_hits,omitempty"`
	CacheMisses uint64 `json:"cache_misses,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// LoadProgram returns the benchmark as a loadable image at address 0.
func (b Benchmark) LoadProgram() *loader.Program {
	data := make([]byte, 4*len(b.Program))
	for i, w := range b.Program {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}

	return &loader.Program{
		Segments: []loader.Segment{{
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   loader.SegmentFlagRead | loader.SegmentFlagExecute,
		}},
	}
}

// Run simulates b with cfg and checks its result.
func Run(b Benchmark, cfg *config.Config) (Result, error) {
	cfg = cfg.Clone()
	cfg.HistoryLimit = 0

	var out bytes.Buffer
	c, err := core.New(cfg, b.LoadProgram(),
		core.WithStdin(bytes.NewReader(nil)), core.WithStdout(&out))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name, err)
	}

	start := time.Now()
	if _, err := c.Run(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name, err)
	}
	wall := time.Since(start)

	if a0 := c.RegFile().ReadReg(insts.RegA0); a0 != b.ExpectedA0 {
		return Result{}, fmt.Errorf("%s: a0 = %d, want %d", b.Name, a0, b.ExpectedA0)
	}

	stats := c.Stats()
	r := Result{
		Name:                 b.Name,
		Description:          b.Description,
		Cycles:               stats.Cycles,
		Instructions:         stats.Instructions,
		CPI:                  stats.CPI(),
		Stalls:               stats.Stalls,
		DataHazards:          stats.DataHazards,
		ControlHazards:       stats.ControlHazards,
		MemoryHazards:        stats.MemoryHazards,
		BranchCorrect:        stats.BranchCorrect,
		BranchMispredictions: stats.BranchMispredictions,
		WallTime:             wall,
	}
	if stats.Cache != nil {
		r.CacheHits = stats.Cache.Hits
		r.CacheMisses = stats.Cache.Misses
	}

	return r, nil
}

// RunAll runs every benchmark, stopping at the first failure.
func RunAll(bs []Benchmark, cfg *config.Config) ([]Result, error) {
	results := make([]Result, 0, len(bs))
	for _, b := range bs {
		r, err := Run(b, cfg)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// WriteTable prints one line per result.
func WriteTable(w io.Writer, results []Result) error {
	if _, err := fmt.Fprintf(w, "%-22s %8s %8s %8s %8s %8s %8s %8s\n",
		"benchmark", "insts", "cycles", "CPI", "stalls", "data", "control", "memory"); err != nil {
		return err
	}

	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%-22s %8d %8d %8.3f %8d %8d %8d %8d\n",
			r.Name, r.Instructions, r.Cycles, r.CPI, r.Stalls,
			r.DataHazards, r.ControlHazards, r.MemoryHazards); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the results as an indented JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
