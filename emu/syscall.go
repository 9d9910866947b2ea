package emu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// System call numbers, passed in a7. The argument is passed in a0.
const (
	SyscallPrintString int32 = 0
	SyscallPrintChar   int32 = 1
	SyscallPrintInt    int32 = 2
	SyscallExit        int32 = 3
	SyscallReadChar    int32 = 4
	SyscallReadInt     int32 = 5
	SyscallExitLinux   int32 = 93
)

// ErrUnknownSyscall is returned for an unrecognized system call number.
var ErrUnknownSyscall = errors.New("unknown system call")

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Value is written back to a0.
	Value int32

	// Exited is true if the syscall requested program termination.
	Exited bool
}

// SyscallHandler is the interface for handling system calls.
type SyscallHandler interface {
	// Handle executes system call num with argument arg (the value of a0).
	Handle(num, arg int32) (SyscallResult, error)
}

// DefaultSyscallHandler implements the console system calls.
type DefaultSyscallHandler struct {
	memory Port
	stdin  *bufio.Reader
	stdout io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler. Strings are read
// through memory.
func NewDefaultSyscallHandler(memory Port, stdin io.Reader, stdout io.Writer) *DefaultSyscallHandler {
	h := &DefaultSyscallHandler{
		memory: memory,
		stdout: stdout,
	}
	h.SetStdin(stdin)
	return h
}

// SetStdin sets the stdin reader for the syscall handler. A *bufio.Reader
// is used as is, so that input can be shared with another consumer.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	switch r := stdin.(type) {
	case nil:
		h.stdin = nil
	case *bufio.Reader:
		h.stdin = r
	default:
		h.stdin = bufio.NewReader(stdin)
	}
}

// Handle executes a system call. Reads leave the argument unchanged when the
// console has no more input.
func (h *DefaultSyscallHandler) Handle(num, arg int32) (SyscallResult, error) {
	switch num {
	case SyscallPrintString:
		return SyscallResult{Value: arg}, h.printString(uint32(arg))
	case SyscallPrintChar:
		fmt.Fprintf(h.stdout, "%c", byte(arg))
		return SyscallResult{Value: arg}, nil
	case SyscallPrintInt:
		fmt.Fprintf(h.stdout, "%d", arg)
		return SyscallResult{Value: arg}, nil
	case SyscallExit, SyscallExitLinux:
		fmt.Fprintf(h.stdout, "Program exit from an exit() system call\n")
		return SyscallResult{Value: arg, Exited: true}, nil
	case SyscallReadChar:
		return SyscallResult{Value: h.readChar(arg)}, nil
	case SyscallReadInt:
		return SyscallResult{Value: h.readInt(arg)}, nil
	}

	return SyscallResult{}, fmt.Errorf("%w: %d", ErrUnknownSyscall, num)
}

func (h *DefaultSyscallHandler) printString(addr uint32) error {
	w := bufio.NewWriter(h.stdout)
	for {
		ch, _, err := h.memory.Read8(addr)
		if err != nil {
			w.Flush()
			return fmt.Errorf("print string at 0x%x: %w", addr, err)
		}
		if ch == 0 {
			break
		}
		w.WriteByte(ch)
		addr++
	}
	return w.Flush()
}

func (h *DefaultSyscallHandler) skipSpace() bool {
	if h.stdin == nil {
		return false
	}
	for {
		b, err := h.stdin.ReadByte()
		if err != nil {
			return false
		}
		switch b {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		}
		_ = h.stdin.UnreadByte()
		return true
	}
}

func (h *DefaultSyscallHandler) readChar(arg int32) int32 {
	if !h.skipSpace() {
		return arg
	}
	b, err := h.stdin.ReadByte()
	if err != nil {
		return arg
	}
	return int32(b)
}

func (h *DefaultSyscallHandler) readInt(arg int32) int32 {
	if !h.skipSpace() {
		return arg
	}
	var v int32
	if _, err := fmt.Fscan(h.stdin, &v); err != nil {
		return arg
	}
	return v
}
