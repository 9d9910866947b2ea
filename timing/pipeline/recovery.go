package pipeline

// RecoveryState is the state of the stall and PC-restore machine.
type RecoveryState int

const (
	// Running is the normal state: fetch follows the PC.
	Running RecoveryState = iota
	// StallPending counts down a multi-cycle stall. The PC is held at the
	// fetch address of the stalled cycle while the decode input waits.
	StallPending
	// AwaitingPcRestore means the saved decode input is back in the fetch
	// register and the PC returns to the saved target next cycle.
	AwaitingPcRestore
)

// String returns the state name.
func (s RecoveryState) String() string {
	switch s {
	case Running:
		return "Running"
	case StallPending:
		return "StallPending"
	case AwaitingPcRestore:
		return "AwaitingPcRestore"
	}
	return "Unknown"
}

// recovery replays the instruction that was being decoded when a stall was
// claimed, once the producer it waits on has written back.
type recovery struct {
	state     RecoveryState
	remaining int

	// saved is the fetch register that fed decode in the stalled cycle.
	saved FetchRegister

	// restorePC is where fetch resumes after the replay.
	restorePC uint32

	// suppressFetch drops the fetch register one cycle before the replay
	// for stalls long enough that it holds a refetched copy.
	suppressFetch bool
}

// begin runs the start-of-cycle transition. It may replace the fetch
// register or the PC, and returns true if the fetch register must be
// treated as a bubble this cycle.
func (r *recovery) begin(fetch *FetchRegister, pc *uint32) bool {
	switch r.state {
	case AwaitingPcRestore:
		*pc = r.restorePC
		r.state = Running

	case StallPending:
		if r.remaining == 1 {
			*fetch = r.saved
			r.state = AwaitingPcRestore
			r.remaining = 0
			return false
		}

		r.remaining--
		if r.remaining == 1 && r.suppressFetch {
			r.suppressFetch = false
			return true
		}
	}

	return false
}

// arm starts a stall of n cycles. A machine already recovering keeps its
// countdown but adopts the newer replay point.
func (r *recovery) arm(n int, saved FetchRegister, restorePC uint32) {
	r.saved = saved
	r.restorePC = restorePC
	if n >= executeStall {
		r.suppressFetch = true
	}

	if r.state == Running {
		r.state = StallPending
		r.remaining = n
	}
}

// holdsPC returns true while fetch must keep re-reading the same address.
func (r *recovery) holdsPC() bool {
	return r.state == StallPending
}

// cancel abandons any pending replay.
func (r *recovery) cancel() {
	*r = recovery{}
}
