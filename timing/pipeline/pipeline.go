package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated, including latency
	// penalties.
	Cycles uint64
	// Instructions is the number of instructions executed.
	Instructions uint64
	// Stalls is the number of stall cycles injected by data hazards.
	Stalls uint64
	// PenaltyCycles is the part of Cycles charged by the latency table.
	PenaltyCycles uint64
	// MemoryCycles is the part of Cycles charged by memory access latency.
	MemoryCycles uint64
	// DataHazards counts operands that were forwarded or stalled on.
	DataHazards uint64
	// ControlHazards counts mispredictions and jumps.
	ControlHazards uint64
	// MemoryHazards counts load-use dependencies.
	MemoryHazards uint64
	// BranchCorrect is the number of correct branch predictions.
	BranchCorrect uint64
	// BranchMispredictions is the number of branch mispredictions.
	BranchMispredictions uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// BranchAccuracy returns the fraction of branches predicted correctly.
func (s Statistics) BranchAccuracy() float64 {
	total := s.BranchCorrect + s.BranchMispredictions
	if total == 0 {
		return 0
	}
	return float64(s.BranchCorrect) / float64(total)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger for per-cycle tracing at debug level.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithForwarding enables or disables data forwarding. Forwarding is enabled
// by default.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithBranchPredictor sets the branch prediction strategy.
func WithBranchPredictor(predictor BranchPredictor) PipelineOption {
	return func(p *Pipeline) {
		p.predictor = predictor
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// WithLatencyTable sets the latency table used for instruction penalties.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithStack points sp at base and fails the run if sp ever drops below
// base-maxSize.
func WithStack(base, maxSize uint32) PipelineOption {
	return func(p *Pipeline) {
		p.regFile.WriteReg(insts.RegSP, base)
		p.stackFloor = base - maxSize
		p.stackChecked = true
	}
}

// WithFetchPort makes instruction fetch read from port instead of the data
// memory port.
func WithFetchPort(port emu.Port) PipelineOption {
	return func(p *Pipeline) {
		p.fetchPort = port
	}
}

// WithHistoryLimit sets how many cycles of history are kept. Zero disables
// the history.
func WithHistoryLimit(limit int) PipelineOption {
	return func(p *Pipeline) {
		p.history = NewHistory(limit)
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	fetchReg   FetchRegister
	decodeReg  DecodeRegister
	executeReg ExecuteRegister
	memoryReg  MemoryRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit
	recovery   recovery
	forwarding bool
	lastStall  int

	predictor      BranchPredictor
	syscallHandler emu.SyscallHandler
	latencyTable   *latency.Table

	// Shared resources
	regFile   *emu.RegFile
	memory    emu.Port
	fetchPort emu.Port

	pc uint32

	stackFloor   uint32
	stackChecked bool

	stats   Statistics
	history *History
	logger  *slog.Logger

	// Execution state
	draining bool
	halted   bool
	exitCode int
	err      error
}

// NewPipeline creates a new 5-stage pipeline.
func NewPipeline(regFile *emu.RegFile, memory emu.Port, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:    regFile,
		memory:     memory,
		forwarding: true,
		history:    NewHistory(DefaultHistoryLimit),
	}

	p.fetchReg.Clear()
	p.decodeReg.Clear()
	p.executeReg.Clear()
	p.memoryReg.Clear()

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.predictor == nil {
		p.predictor = AlwaysNotTaken{}
	}
	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(memory, os.Stdin, os.Stdout)
	}
	if p.latencyTable == nil {
		p.latencyTable = latency.NewTable()
	}

	if p.fetchPort == nil {
		p.fetchPort = memory
	}

	p.fetchStage = NewFetchStage(p.fetchPort)
	p.decodeStage = NewDecodeStage(regFile, p.predictor)
	p.executeStage = NewExecuteStage(p.predictor, p.syscallHandler, p.latencyTable)
	p.memoryStage = NewMemoryStage(memory)
	p.writebackStage = NewWritebackStage(regFile)
	p.hazardUnit = NewHazardUnit(p.forwarding)

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Predictor returns the branch predictor.
func (p *Pipeline) Predictor() BranchPredictor {
	return p.predictor
}

// Forwarding returns true if data forwarding is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// History returns the execution history.
func (p *Pipeline) History() *History {
	return p.history
}

// Recovery returns the state of the stall machine and the cycles left in
// its countdown.
func (p *Pipeline) Recovery() (RecoveryState, int) {
	return p.recovery.state, p.recovery.remaining
}

// LastStall returns the stall length claimed in the last cycle.
func (p *Pipeline) LastStall() int {
	return p.lastStall
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code if the pipeline has halted.
func (p *Pipeline) ExitCode() int {
	return p.exitCode
}

// Err returns the fatal error that stopped the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Run executes the pipeline until it halts or fails.
// Returns the exit code.
func (p *Pipeline) Run() (int, error) {
	for !p.halted {
		if err := p.Tick(); err != nil {
			return 0, err
		}
	}
	return p.exitCode, nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.halted, nil
}

func (p *Pipeline) fail(kind error, pc uint32, cause error) error {
	p.err = newError(kind, pc, p.stats.Cycles, cause)
	p.logger.Debug("fatal", "kind", kind, "pc", hex(pc), "err", cause)
	return p.err
}

// Tick executes one pipeline cycle.
//
// A cycle first lets the stall machine replay a stalled decode input or
// restore the PC, then checks that x0 is zero and sp is above the stack
// floor. The stages run in program order (IF, ID, EX, MEM, WB) and each
// returns its next register value. Execute, memory and write-back results
// are merged into the decode output by the hazard unit, with the execute
// tier taking precedence. The next values then latch unless their
// register is stalled, the claimed stall is turned into bubbles, a control
// hazard redirects fetch and cancels any stall, and a taken prediction
// redirects fetch to the predicted target.
//
// Once the pipeline has failed, Tick returns the same error forever.
func (p *Pipeline) Tick() error {
	if p.err != nil {
		return p.err
	}
	if p.halted {
		return nil
	}

	suppressFetch := p.recovery.begin(&p.fetchReg, &p.pc)

	p.regFile.ForceZero()
	if sp := p.regFile.ReadReg(insts.RegSP); p.stackChecked && sp < p.stackFloor {
		return p.fail(ErrStackOverflow, p.pc,
			fmt.Errorf("sp 0x%x is below the stack floor 0x%x", sp, p.stackFloor))
	}

	pcIn := p.pc

	// IF
	fetchNext := FetchRegister{Bubble: true}
	if !p.draining && p.fetchReg.Stall == 0 {
		r, err := p.fetchStage.Fetch(p.pc)
		if err != nil {
			return p.fail(ErrMemoryFault, p.pc, err)
		}
		fetchNext = r
		p.pc += 4
	}
	if suppressFetch {
		p.fetchReg.Clear()
	}

	// ID
	decodeNext := DecodeRegister{Bubble: true}
	if p.fetchReg.Stall == 0 {
		decodeNext = p.decodeStage.Decode(p.fetchReg)
		p.traceDecode(&decodeNext)
		if decodeNext.PredictedTaken {
			fetchNext.Clear()
		}
	}

	// EX
	ex := ExecuteResult{Reg: ExecuteRegister{Bubble: true}}
	if !p.decodeReg.Bubble && p.decodeReg.Stall == 0 {
		var err error
		ex, err = p.executeStage.Execute(&p.decodeReg)
		if err != nil {
			return p.fail(classify(err), p.decodeReg.PC, err)
		}
		p.recordExecute(&ex)

		if ex.Control {
			p.pc = ex.Target
			fetchNext.Clear()
			decodeNext.Clear()
		}
		if ex.Exited {
			p.draining = true
			p.exitCode = 0
			fetchNext.Clear()
			decodeNext.Clear()
		}
	}

	// MEM
	memNext, memCycles, err := p.memoryStage.Access(&p.executeReg)
	if err != nil {
		return p.fail(classify(err), p.executeReg.PC, err)
	}
	p.stats.MemoryCycles += uint64(memCycles)
	p.stats.Cycles += uint64(memCycles)

	// WB
	wbOffer := p.memoryReg.offer(TierWriteback)
	p.writebackStage.Writeback(&p.memoryReg)

	var frozen *DecodeRegister
	if p.decodeReg.Stall > 0 {
		frozen = &p.decodeReg
	}
	redirected := ex.Control || ex.Exited
	hz := p.hazardUnit.Resolve(&decodeNext, frozen, []ForwardOffer{
		ex.Offer,
		memNext.offer(TierMemory),
		wbOffer,
	}, redirected)
	p.stats.DataHazards += hz.DataHazards
	p.stats.MemoryHazards += hz.MemoryHazards

	if hz.LoadUse {
		fetchNext.Stall = loadUseStall
		decodeNext.Stall = loadUseStall
		p.stats.Stalls += loadUseStall
	}

	p.commit(fetchNext, decodeNext, ex.Reg, memNext, pcIn, hz.Stall, redirected)

	if p.draining && p.executeReg.Bubble && p.memoryReg.Bubble {
		p.halted = true
	}

	p.regFile.PC = p.pc
	p.stats.Cycles++
	p.history.RecordRegs(p.stats.Cycles, p.pc, p.regFile.Snapshot())

	p.logger.Debug("cycle",
		"cycle", p.stats.Cycles,
		"pc", hex(p.pc),
		"stall", p.lastStall,
		"recovery", p.recovery.state.String(),
		"countdown", p.recovery.remaining)

	return nil
}

// commit latches the next register values and applies the cycle's stall
// and redirect decisions.
func (p *Pipeline) commit(
	fetchNext FetchRegister,
	decodeNext DecodeRegister,
	executeNext ExecuteRegister,
	memoryNext MemoryRegister,
	pcIn uint32,
	stall int,
	redirected bool,
) {
	decodeInput := p.fetchReg

	if p.fetchReg.Stall > 0 {
		p.fetchReg.Stall--
	} else {
		p.fetchReg = fetchNext
	}
	if p.decodeReg.Stall > 0 {
		p.decodeReg.Stall--
	} else {
		p.decodeReg = decodeNext
	}
	p.executeReg = executeNext
	p.memoryReg = memoryNext

	if redirected {
		// The squashed decode output cannot depend on anything, and any
		// replay in flight belongs to the wrong path.
		stall = 0
		p.recovery.cancel()
	}

	switch stall {
	case writeStall:
		p.decodeReg.Clear()
	case memoryStall, executeStall:
		p.decodeReg.Clear()
		p.fetchReg.Clear()
	}
	if stall > 0 {
		p.recovery.arm(stall, decodeInput, p.pc)
		p.stats.Stalls += uint64(stall)
	}
	p.lastStall = stall

	if p.recovery.holdsPC() {
		p.pc = pcIn
	}

	if !p.decodeReg.Bubble && p.decodeReg.Stall == 0 && p.fetchReg.Stall == 0 &&
		p.decodeReg.PredictedTaken {
		p.pc = p.decodeReg.PredictedPC
		p.recovery.cancel()
	}
}

func (p *Pipeline) recordExecute(ex *ExecuteResult) {
	p.stats.Instructions++
	p.stats.PenaltyCycles += ex.ExtraCycles
	p.stats.Cycles += ex.ExtraCycles

	if ex.Branch {
		if ex.Correct {
			p.stats.BranchCorrect++
		} else {
			p.stats.BranchMispredictions++
		}
	}
	if ex.Control {
		p.stats.ControlHazards++
	}

	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("execute",
			"pc", hex(ex.Reg.PC),
			"inst", ex.Reg.Inst.Text(),
			"control", ex.Control,
			"target", hex(ex.Target))
	}
}

func (p *Pipeline) traceDecode(r *DecodeRegister) {
	if r.Bubble || r.Inst == nil {
		return
	}

	text := r.Inst.Text()
	p.history.RecordInst(p.stats.Cycles, r.PC, text)

	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("decode",
			"pc", hex(r.PC),
			"inst", text,
			"predicted", r.PredictedTaken)
	}
}

func hex(v uint32) string {
	return fmt.Sprintf("0x%x", v)
}
