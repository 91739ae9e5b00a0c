package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/abiosoft/readline"
)

// maxScanLine bounds one scanned line. Lines over the configured maximum
// are still read whole so they can be rejected with a diagnostic.
const maxScanLine = 1 << 20

// LineReader yields input lines without their trailing newline. It returns
// io.EOF when input ends.
type LineReader interface {
	ReadLine() (string, error)
	Close() error
}

type scanReader struct {
	scanner *bufio.Scanner
}

// NewScanReader reads lines from a non-interactive source with no prompt.
func NewScanReader(r io.Reader) LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxScanLine)
	return &scanReader{scanner: s}
}

func (r *scanReader) ReadLine() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() error { return nil }

type readlineReader struct {
	rl *readline.Instance
}

// NewReadlineReader returns an interactive line editor showing prompt and
// persisting its history to historyFile (none if empty).
func NewReadlineReader(prompt, historyFile string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "killterm",
	})
	if err != nil {
		return nil, fmt.Errorf("readline: %w", err)
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine() (string, error) {
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			// Interrupt clears the line.
			continue
		}
		return line, err
	}
}

func (r *readlineReader) Close() error { return r.rl.Close() }

// Run executes lines from in until input ends, ctx is done, or a line asks
// the interpreter to stop. An interrupt while a line runs cancels that line
// only.
func (s *Shell) Run(ctx context.Context, in LineReader) error {
	defer in.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		lineCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit := s.Execute(lineCtx, raw)
		stop()
		if quit {
			return nil
		}
	}
}
