// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/marcelocantos/vortex/internal/command"
)

// SpawnKind classifies why a command could not be started.
type SpawnKind int

const (
	NotFound SpawnKind = iota
	InputRedirect
	OutputRedirect
)

// SpawnError is returned when no process could be created for a command.
type SpawnError struct {
	Kind SpawnKind
	Name string // program name
	Path string // redirect target, for the redirect kinds
	Err  error
}

func (e *SpawnError) Error() string {
	switch e.Kind {
	case InputRedirect:
		return fmt.Sprintf("Cannot open input file %s", e.Path)
	case OutputRedirect:
		return fmt.Sprintf("Cannot open output file %s", e.Path)
	default:
		return fmt.Sprintf("Command '%s' not found", e.Name)
	}
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Child is the parent's handle on a spawned process. Spawning either
// replaces the child's image with the program or fails in the parent before
// any process exists; no caller code ever runs on the child side.
type Child struct {
	name string
	cmd  *exec.Cmd
}

// Pid returns the child's process id.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Wait blocks until the child exits and returns its status. It must be
// called exactly once.
func (c *Child) Wait() int {
	return exitStatus(c.cmd.Wait())
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return FailureStatus
}

// spawn starts d with the given streams, substituting the descriptor's own
// redirections. Files opened for redirection are closed in the parent once
// the child holds its copies.
func (e *Engine) spawn(ctx context.Context, d *command.Descriptor, stdin io.Reader, stdout io.Writer) (*Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if d.Input != "" {
		f, err := os.Open(d.Input)
		if err != nil {
			return nil, &SpawnError{Kind: InputRedirect, Name: d.Program, Path: d.Input, Err: err}
		}
		opened = append(opened, f)
		stdin = f
	}
	if d.Output != nil {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if d.Output.Mode == command.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(d.Output.Path, flags, 0666)
		if err != nil {
			return nil, &SpawnError{Kind: OutputRedirect, Name: d.Program, Path: d.Output.Path, Err: err}
		}
		opened = append(opened, f)
		stdout = f
	}

	cmd := exec.CommandContext(ctx, d.Program, d.Args()...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = e.stderr
	cmd.SysProcAttr = e.group.SysProcAttr()
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Kind: NotFound, Name: d.Program, Err: err}
	}
	return &Child{name: d.Program, cmd: cmd}, nil
}

// reportSpawn prints the diagnostic for a failed spawn.
func (e *Engine) reportSpawn(err error) {
	var se *SpawnError
	if errors.As(err, &se) {
		e.report.Errorf("%s", se.Error())
		return
	}
	e.report.Errorf("%v", err)
}
