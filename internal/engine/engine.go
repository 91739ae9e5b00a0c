// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package engine turns parsed commands into running processes: single
// commands, forward and reverse pipelines, sequential runs and conditional
// chains. Every entry point blocks until all of its children have exited.
package engine

import (
	"errors"
	"io"
	"os"

	"github.com/marcelocantos/vortex/internal/console"
	"github.com/marcelocantos/vortex/internal/procgroup"
)

var (
	// ErrChainLength reports a command list outside the mode's size bounds.
	ErrChainLength = errors.New("wrong number of commands")
	// ErrOperatorCount reports a conditional chain whose operators do not
	// line up with its commands.
	ErrOperatorCount = errors.New("operator count must be one less than command count")
	// ErrPipe reports that the pipes for a pipeline could not be created.
	ErrPipe = errors.New("pipe creation failed")
)

// FailureStatus is the status recorded for a command that could not be
// started or did not exit normally.
const FailureStatus = 1

// Result is the outcome of one command.
type Result struct {
	Name    string
	Pid     int  // 0 if never spawned
	Status  int  // exit code, or FailureStatus
	Spawned bool // a process was created and waited on
	Skipped bool // short-circuited or invalid; no process was created
}

// Engine spawns commands into the interpreter's process group with the
// interpreter's standard streams as defaults.
type Engine struct {
	group  procgroup.Group
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	report *console.Reporter
	pipe   func() (r, w *os.File, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithStdio overrides the default standard streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdin, e.stdout, e.stderr = stdin, stdout, stderr
	}
}

// WithReporter sets where diagnostics are printed.
func WithReporter(r *console.Reporter) Option {
	return func(e *Engine) { e.report = r }
}

// New creates an Engine for the given process group.
func New(group procgroup.Group, opts ...Option) *Engine {
	e := &Engine{
		group:  group,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		pipe:   os.Pipe,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.report == nil {
		e.report = console.NewReporter(e.stdout, false)
	}
	return e
}

// Reporter returns the engine's diagnostic sink.
func (e *Engine) Reporter() *console.Reporter { return e.report }

func skipped(name string) Result {
	return Result{Name: name, Status: FailureStatus, Skipped: true}
}
