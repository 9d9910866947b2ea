package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sarchlab/rvsim/timing/core"
)

const stepPrompt = "Type d to dump memory in %s, press ENTER to continue: "

// stepper pauses the simulation between cycles. Returning io.EOF ends
// single-stepping and lets the run continue.
type stepper interface {
	Step(c *core.Core) error
}

// input is the single reader shared by the console and the program's read
// system calls. A terminal is read through readline; anything else is read
// directly.
type input struct {
	*bufio.Reader
	rl *readline.Instance
}

func newInput(stdin io.Reader, out io.Writer, interactive bool) (*input, error) {
	f, ok := stdin.(*os.File)
	if !interactive || !ok || !readline.IsTerminal(int(f.Fd())) {
		return &input{Reader: bufio.NewReader(stdin)}, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Stdin:  f,
		Stdout: out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start console: %w", err)
	}

	return &input{Reader: bufio.NewReader(&lineReader{rl: rl}), rl: rl}, nil
}

// ask shows text as the prompt of the next line read.
func (in *input) ask(out io.Writer, text string) {
	if in.rl != nil {
		in.rl.SetPrompt(text)
		return
	}
	fmt.Fprint(out, text)
}

func (in *input) Close() error {
	if in.rl == nil {
		return nil
	}
	return in.rl.Close()
}

// lineReader turns readline's lines back into a byte stream.
type lineReader struct {
	rl      *readline.Instance
	pending []byte
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		line, err := r.rl.Readline()
		if err != nil {
			return 0, io.EOF
		}
		r.pending = []byte(line + "\n")
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

type console struct {
	in       *input
	out      io.Writer
	dumpFile string
}

func newConsole(in *input, out io.Writer, dumpFile string) *console {
	return &console{in: in, out: out, dumpFile: dumpFile}
}

// Step waits for a command. "d" writes a dump and waits again, and anything
// else continues.
func (c *console) Step(sim *core.Core) error {
	for {
		c.in.ask(c.out, fmt.Sprintf(stepPrompt, c.dumpFile))
		line, err := c.in.ReadString('\n')
		if c.in.rl != nil {
			c.in.rl.SetPrompt("")
		}
		if err != nil && line == "" {
			return io.EOF
		}

		switch strings.TrimSpace(line) {
		case "d":
			if err := sim.DumpFile(c.dumpFile); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Execution history dumped to %s\n", c.dumpFile)
		case "q":
			return io.EOF
		default:
			return nil
		}
	}
}
