package line

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcelocantos/vortex/internal/command"
)

// Built-in line keywords.
const (
	KeywordExit         = "killterm"
	KeywordTerminateAll = "killallterms"
)

// DefaultMaxLine bounds the length of one input line.
const DefaultMaxLine = 256

var (
	// ErrTooLong reports a line longer than the configured maximum.
	ErrTooLong = errors.New("input line too long")
	// ErrCrossAppendArgs reports a ~ line without exactly two file names.
	ErrCrossAppendArgs = errors.New("two text files required for ~ operation")
)

// Classify maps a raw line onto a Plan. Operators are tested in a fixed
// precedence order; the first one present decides the mode for the whole
// line. Chains longer than their cap stop collecting segments.
func Classify(raw string, maxLine int) (Plan, error) {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	if len(raw) > maxLine {
		return Plan{}, fmt.Errorf("%w: %d > %d", ErrTooLong, len(raw), maxLine)
	}
	raw = strings.TrimRight(raw, "\r\n")

	switch strings.TrimSpace(raw) {
	case "":
		return Plan{Mode: Empty}, nil
	case KeywordExit:
		return Plan{Mode: Exit}, nil
	case KeywordTerminateAll:
		return Plan{Mode: TerminateAll}, nil
	}

	switch {
	case strings.Contains(raw, "|") && !strings.Contains(raw, "||"):
		return Plan{Mode: Pipeline, Segments: split(raw, "|", command.MaxChain)}, nil

	case strings.Contains(raw, "="):
		return Plan{Mode: Reverse, Segments: split(raw, "=", command.MaxChain)}, nil

	case strings.Contains(raw, "~"):
		files := split(raw, "~", 2)
		if len(files) != 2 {
			return Plan{}, ErrCrossAppendArgs
		}
		return Plan{Mode: CrossAppend, Files: files}, nil

	case strings.HasPrefix(raw, "#"):
		return Plan{Mode: WordCount, Files: []string{strings.TrimSpace(raw[1:])}}, nil

	case strings.Contains(raw, "+"):
		return Plan{Mode: Concat, Files: split(raw, "+", command.MaxChain)}, nil

	case strings.Contains(raw, ";"):
		segs := split(raw, ";", command.MaxSequential)
		if len(segs) == 0 {
			return Plan{Mode: Empty}, nil
		}
		return Plan{Mode: Sequential, Segments: segs}, nil

	case strings.Contains(raw, "&&") || strings.Contains(raw, "||"):
		return conditional(raw), nil
	}

	return Plan{Mode: Single, Segments: []string{strings.TrimSpace(raw)}}, nil
}

// split cuts s at every sep, trims each piece, drops empty pieces, and keeps
// at most limit of them.
func split(s, sep string, limit int) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if len(out) == limit {
			break
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// conditional scans left to right, cutting at whichever of && and || comes
// first. && wins when both start at the same position.
func conditional(raw string) Plan {
	p := Plan{Mode: Conditional}
	rest := raw
	for len(p.Segments) < command.MaxChain {
		and := strings.Index(rest, "&&")
		or := strings.Index(rest, "||")
		var (
			cut = -1
			op  command.Operator
		)
		switch {
		case and >= 0 && (or < 0 || and <= or):
			cut, op = and, command.AndThen
		case or >= 0:
			cut, op = or, command.OrElse
		}
		if cut < 0 {
			p.Segments = append(p.Segments, strings.TrimSpace(rest))
			break
		}
		p.Segments = append(p.Segments, strings.TrimSpace(rest[:cut]))
		rest = rest[cut+2:]
		if len(p.Segments) < command.MaxChain {
			p.Ops = append(p.Ops, op)
		}
	}
	return p
}
