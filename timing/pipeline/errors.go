package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// Fatal error kinds. Every one of them stops the pipeline for good.
var (
	ErrDecode              = errors.New("decode error")
	ErrMemoryFault         = errors.New("memory fault")
	ErrStackOverflow       = errors.New("stack overflow")
	ErrUnknownSyscall      = errors.New("unknown system call")
	ErrInstructionMismatch = errors.New("instruction mismatch")
	ErrSyscallFailed       = errors.New("system call failed")
)

// Error is a fatal pipeline failure. errors.Is matches both its Kind and
// the underlying cause.
type Error struct {
	Kind  error
	PC    uint32
	Cycle uint64

	cause error
}

func newError(kind error, pc uint32, cycle uint64, cause error) *Error {
	return &Error{
		Kind:  kind,
		PC:    pc,
		Cycle: cycle,
		cause: errors.WithStack(cause),
	}
}

// Error implements error.
func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%v at pc 0x%x, cycle %d", e.Kind, e.PC, e.Cycle)
	}
	return fmt.Sprintf("%v at pc 0x%x, cycle %d: %v", e.Kind, e.PC, e.Cycle, e.cause)
}

// Cause returns the underlying error, with the stack where it was raised.
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Format prints the stack of the cause with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.cause != nil {
		fmt.Fprintf(s, "%v at pc 0x%x, cycle %d: %+v", e.Kind, e.PC, e.Cycle, e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// classify maps an error from the decoder, memory or system-call layer to
// a fatal kind.
func classify(err error) error {
	switch {
	case errors.Is(err, insts.ErrMnemonicMismatch):
		return ErrInstructionMismatch
	case errors.Is(err, insts.ErrUnknownInstruction), errors.Is(err, insts.ErrCompressed):
		return ErrDecode
	case errors.Is(err, emu.ErrUnknownSyscall):
		return ErrUnknownSyscall
	case errors.Is(err, emu.ErrOutOfRange):
		return ErrMemoryFault
	}
	return ErrSyscallFailed
}
