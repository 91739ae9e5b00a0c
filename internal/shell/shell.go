// Package shell is the interpreter's front end: it classifies each input
// line and hands it to exactly one engine or file-utility entry point.
package shell

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/marcelocantos/vortex/internal/command"
	"github.com/marcelocantos/vortex/internal/console"
	"github.com/marcelocantos/vortex/internal/engine"
	"github.com/marcelocantos/vortex/internal/fileops"
	"github.com/marcelocantos/vortex/internal/history"
	"github.com/marcelocantos/vortex/internal/line"
	"github.com/marcelocantos/vortex/internal/procgroup"
)

// SkippedStatus marks a command that never ran in a history record.
const SkippedStatus = -1

// Shell dispatches classified lines.
type Shell struct {
	engine  *engine.Engine
	files   *fileops.Utils
	group   procgroup.Group
	lister  procgroup.Lister
	kill    procgroup.KillFunc
	history *history.Logger
	report  *console.Reporter
	maxLine int
	status  int
}

// Option configures a Shell.
type Option func(*Shell)

// WithLister sets how sibling instances are found for killallterms.
func WithLister(l procgroup.Lister) Option {
	return func(s *Shell) { s.lister = l }
}

// WithKill replaces the signal sender used by killallterms.
func WithKill(k procgroup.KillFunc) Option {
	return func(s *Shell) { s.kill = k }
}

// WithHistory records every executed line to l.
func WithHistory(l *history.Logger) Option {
	return func(s *Shell) { s.history = l }
}

// WithMaxLine sets the longest accepted input line.
func WithMaxLine(n int) Option {
	return func(s *Shell) { s.maxLine = n }
}

// New returns a Shell running commands on eng and file utilities on files.
func New(eng *engine.Engine, files *fileops.Utils, group procgroup.Group, opts ...Option) *Shell {
	s := &Shell{
		engine:  eng,
		files:   files,
		group:   group,
		lister:  procgroup.NewProcLister(),
		kill:    procgroup.SigKill,
		report:  eng.Reporter(),
		maxLine: line.DefaultMaxLine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome is what one line did, for the history.
type outcome struct {
	mode     line.Mode
	commands []string
	statuses []int
	err      error
	stop     bool
}

// Execute classifies and runs one line. It reports whether the interpreter
// should stop reading input.
func (s *Shell) Execute(ctx context.Context, raw string) bool {
	start := time.Now()
	plan, err := line.Classify(raw, s.maxLine)
	if err != nil {
		s.reportClassify(err)
		s.status = engine.FailureStatus
		s.record(raw, outcome{err: err}, start)
		return false
	}
	if plan.Mode == line.Empty {
		return false
	}

	out := s.dispatch(ctx, plan)
	out.mode = plan.Mode
	s.status = out.status()
	s.record(raw, out, start)
	return out.stop
}

// Status returns the status of the most recent non-empty line: the last
// command's exit status, or engine.FailureStatus if nothing ran and the
// line failed.
func (s *Shell) Status() int { return s.status }

func (s *Shell) reportClassify(err error) {
	switch {
	case errors.Is(err, line.ErrTooLong):
		s.report.Errorf("Input exceeds %d characters", s.maxLine)
	case errors.Is(err, line.ErrCrossAppendArgs):
		s.report.Errorf("Two text files required for ~ operation")
	default:
		s.report.Errorf("%v", err)
	}
}

func (s *Shell) dispatch(ctx context.Context, plan line.Plan) outcome {
	switch plan.Mode {
	case line.Exit:
		return outcome{stop: true}

	case line.TerminateAll:
		return s.terminateAll(ctx)

	case line.Single:
		d, err := command.Parse(plan.Segments[0])
		if err != nil {
			s.engine.ReportInvalid(plan.Segments[0], err)
			return outcome{commands: plan.Segments, statuses: []int{SkippedStatus}, err: err}
		}
		return fromResults(nil, s.engine.RunSingle(ctx, d))

	case line.Pipeline, line.Reverse:
		ds, err := s.parseAll(plan.Segments)
		if err != nil {
			return outcome{commands: plan.Segments, statuses: skippedAll(len(plan.Segments)), err: err}
		}
		if len(ds) == 1 {
			return fromResults(nil, s.engine.RunSingle(ctx, ds[0]))
		}
		run := s.engine.RunPipeline
		if plan.Mode == line.Reverse {
			run = s.engine.RunReverse
		}
		results, err := run(ctx, ds)
		return fromResults(err, results...)

	case line.Sequential:
		results, err := s.engine.RunSequential(ctx, plan.Segments)
		return fromResults(err, results...)

	case line.Conditional:
		// Invalid segments are reported here and fail in place; the rest of
		// the chain still runs.
		ds := make([]*command.Descriptor, len(plan.Segments))
		for i, seg := range plan.Segments {
			d, err := command.Parse(seg)
			if err != nil {
				s.engine.ReportInvalid(seg, err)
				continue
			}
			ds[i] = d
		}
		results, err := s.engine.RunConditional(ctx, ds, plan.Ops)
		for i := range results {
			if results[i].Name == "" {
				results[i].Name = plan.Segments[i]
			}
		}
		return fromResults(err, results...)

	case line.WordCount:
		_, err := s.files.WordCount(plan.Files[0])
		return outcome{commands: plan.Files, err: err}

	case line.Concat:
		return outcome{commands: plan.Files, err: errors.Join(s.files.Concat(plan.Files)...)}

	case line.CrossAppend:
		return outcome{commands: plan.Files, err: s.files.CrossAppend(plan.Files[0], plan.Files[1])}
	}
	return outcome{}
}

// parseAll parses every segment of a pipeline, reporting each one that
// fails. Any failure means no pipe is created and nothing is spawned.
func (s *Shell) parseAll(segments []string) ([]*command.Descriptor, error) {
	ds := make([]*command.Descriptor, 0, len(segments))
	var errs []error
	for _, seg := range segments {
		d, err := command.Parse(seg)
		if err != nil {
			s.engine.ReportInvalid(seg, err)
			errs = append(errs, err)
			continue
		}
		ds = append(ds, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ds, nil
}

func (s *Shell) terminateAll(ctx context.Context) outcome {
	t, err := s.group.TerminateAll(ctx, s.lister, s.kill, s.report)
	if err != nil && !t.Self {
		s.report.Errorf("Cannot list processes: %v", err)
		return outcome{err: err}
	}
	out := outcome{stop: true, err: err}
	for _, pid := range t.Killed {
		out.commands = append(out.commands, strconv.Itoa(pid))
	}
	return out
}

func (s *Shell) record(raw string, out outcome, start time.Time) {
	if s.history == nil {
		return
	}
	cwd, _ := os.Getwd()
	err := s.history.Log(history.Record{
		Line:     raw,
		Mode:     out.mode.String(),
		Commands: out.commands,
		Statuses: out.statuses,
		Err:      out.err,
		Duration: time.Since(start),
		Cwd:      cwd,
	})
	if err != nil {
		// History is best effort; the line already ran.
		s.report.Errorf("history %s: %v", s.history.Path(), err)
	}
}

func (o outcome) status() int {
	for i := len(o.statuses) - 1; i >= 0; i-- {
		if o.statuses[i] != SkippedStatus {
			return o.statuses[i]
		}
	}
	if o.err != nil {
		return engine.FailureStatus
	}
	return 0
}

func fromResults(err error, results ...engine.Result) outcome {
	out := outcome{err: err}
	for _, r := range results {
		out.commands = append(out.commands, r.Name)
		if r.Skipped {
			out.statuses = append(out.statuses, SkippedStatus)
			continue
		}
		out.statuses = append(out.statuses, r.Status)
	}
	return out
}

func skippedAll(n int) []int {
	st := make([]int, n)
	for i := range st {
		st[i] = SkippedStatus
	}
	return st
}
