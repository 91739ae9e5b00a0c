// Package line classifies a raw input line by its operator tokens.
package line

import (
	"fmt"
	"strings"

	"github.com/marcelocantos/vortex/internal/command"
)

// Mode is the execution mode chosen for a line.
type Mode int

const (
	Empty Mode = iota
	Single
	Pipeline
	Reverse
	Sequential
	Conditional
	WordCount
	Concat
	CrossAppend
	Exit
	TerminateAll
)

var modeNames = [...]string{
	Empty:        "empty",
	Single:       "single",
	Pipeline:     "pipeline",
	Reverse:      "reverse",
	Sequential:   "sequential",
	Conditional:  "conditional",
	WordCount:    "wordcount",
	Concat:       "concat",
	CrossAppend:  "crossappend",
	Exit:         "exit",
	TerminateAll: "terminate-all",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Plan is a classified line. Segments hold raw command text for the
// command-running modes; Files hold trimmed file names for the whole-file
// utilities.
type Plan struct {
	Mode     Mode
	Segments []string
	Ops      []command.Operator // len(Segments)-1 entries for Conditional
	Files    []string
}

// String renders the plan on one line, for logs and golden tests.
func (p Plan) String() string {
	var b strings.Builder
	b.WriteString(p.Mode.String())
	switch p.Mode {
	case WordCount, Concat, CrossAppend:
		for _, f := range p.Files {
			fmt.Fprintf(&b, " [%s]", f)
		}
	case Conditional:
		for i, s := range p.Segments {
			if i > 0 {
				fmt.Fprintf(&b, " %s", p.Ops[i-1])
			}
			fmt.Fprintf(&b, " [%s]", s)
		}
	default:
		for _, s := range p.Segments {
			fmt.Fprintf(&b, " [%s]", s)
		}
	}
	return b.String()
}
