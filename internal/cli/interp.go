package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/marcelocantos/vortex/internal/config"
	"github.com/marcelocantos/vortex/internal/console"
	"github.com/marcelocantos/vortex/internal/engine"
	"github.com/marcelocantos/vortex/internal/fileops"
	"github.com/marcelocantos/vortex/internal/history"
	"github.com/marcelocantos/vortex/internal/procgroup"
	"github.com/marcelocantos/vortex/internal/shell"
)

type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// setupGroup is replaced in tests, which must not move the test binary into
// a new process group.
var setupGroup = procgroup.Setup

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runInterpreter starts the interpreter. With oneShot set it runs line once;
// otherwise it reads lines from the terminal or from in until input ends or
// a built-in stops it.
func runInterpreter(ctx context.Context, cfg *config.Config, line string, oneShot bool, std stdio) int {
	if ctx == nil {
		ctx = context.Background()
	}

	name, err := procgroup.SelfName(procgroup.SelfCmdline, cfg.ProcessNameFallback)
	if err != nil {
		fmt.Fprintf(std.err, "vortex: process name: %v\n", err)
	}
	group, err := setupGroup(name)
	if err != nil {
		fmt.Fprintf(std.err, "vortex: process group: %v\n", err)
	}

	lister, err := procgroup.NewLister(cfg.Lister)
	if err != nil {
		fmt.Fprintf(std.err, "vortex: %v\n", err)
		return 1
	}

	rep := console.NewReporter(std.out, cfg.Color && isTerminal(std.out))
	eng := engine.New(group,
		engine.WithStdio(std.in, std.out, std.err),
		engine.WithReporter(rep),
	)
	files := fileops.New(afero.NewOsFs(), std.out, rep)

	opts := []shell.Option{
		shell.WithLister(lister),
		shell.WithMaxLine(cfg.Limits.MaxLine),
	}
	if cfg.History.Enabled {
		logger, err := history.NewLogger(cfg.History.Path)
		if err != nil {
			// Continue without history.
			fmt.Fprintf(std.err, "vortex: history: %v\n", err)
		} else {
			opts = append(opts, shell.WithHistory(logger))
		}
	}
	sh := shell.New(eng, files, group, opts...)

	if oneShot {
		sh.Execute(ctx, line)
		return sh.Status()
	}

	var in shell.LineReader
	if isTerminal(std.in) && isTerminal(std.out) {
		in, err = shell.NewReadlineReader(cfg.Prompt, cfg.Readline.HistoryFile)
		if err != nil {
			fmt.Fprintf(std.err, "vortex: %v\n", err)
			return 1
		}
	} else {
		in = shell.NewScanReader(std.in)
	}
	if err := sh.Run(ctx, in); err != nil {
		fmt.Fprintf(std.err, "vortex: %v\n", err)
		return 1
	}
	return 0
}
