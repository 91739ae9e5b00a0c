// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcelocantos/vortex/internal/command"
)

// RunSingle runs one command to completion with its redirections applied.
func (e *Engine) RunSingle(ctx context.Context, d *command.Descriptor) Result {
	child, err := e.spawn(ctx, d, e.stdin, e.stdout)
	if err != nil {
		e.reportSpawn(err)
		return Result{Name: d.Program, Status: FailureStatus}
	}
	return Result{Name: d.Program, Pid: child.Pid(), Status: child.Wait(), Spawned: true}
}

// RunSequential parses and runs each segment in turn, whatever the previous
// one's outcome. A segment that does not parse is reported and skipped.
func (e *Engine) RunSequential(ctx context.Context, segments []string) ([]Result, error) {
	if len(segments) < 1 || len(segments) > command.MaxSequential {
		return nil, fmt.Errorf("sequential: %w: %d", ErrChainLength, len(segments))
	}
	results := make([]Result, 0, len(segments))
	for _, seg := range segments {
		d, err := command.Parse(seg)
		if err != nil {
			e.ReportInvalid(seg, err)
			results = append(results, skipped(seg))
			continue
		}
		results = append(results, e.RunSingle(ctx, d))
	}
	return results, nil
}

// RunConditional runs ds left to right. ops[i-1] decides whether ds[i] runs:
// AndThen needs the last observed status to be 0, OrElse needs it non-zero.
// A skipped command leaves the last observed status untouched.
//
// A nil entry stands for a segment that failed validation and was already
// reported. When its turn comes it fails with FailureStatus without
// spawning, and the chain carries on.
func (e *Engine) RunConditional(ctx context.Context, ds []*command.Descriptor, ops []command.Operator) ([]Result, error) {
	if len(ds) < 1 || len(ds) > command.MaxChain {
		return nil, fmt.Errorf("conditional: %w: %d", ErrChainLength, len(ds))
	}
	if len(ops) != len(ds)-1 {
		return nil, fmt.Errorf("conditional: %w: %d commands, %d operators", ErrOperatorCount, len(ds), len(ops))
	}

	results := make([]Result, len(ds))
	last := 0
	for i, d := range ds {
		var name string
		if d != nil {
			name = d.Program
		}
		switch {
		case i > 0 && !shouldRun(ops[i-1], last):
			results[i] = skipped(name)
			continue
		case d == nil:
			results[i] = Result{Status: FailureStatus}
		default:
			results[i] = e.RunSingle(ctx, d)
		}
		last = results[i].Status
	}
	return results, nil
}

func shouldRun(op command.Operator, last int) bool {
	switch op {
	case command.AndThen:
		return last == 0
	case command.OrElse:
		return last != 0
	default:
		return false
	}
}

// ReportInvalid prints the diagnostic for a segment that did not parse.
func (e *Engine) ReportInvalid(segment string, err error) {
	var ve *command.ValidationError
	switch {
	case errors.Is(err, command.ErrArgCount) && errors.As(err, &ve):
		name := ve.Name
		if name == "" {
			name = segment
		}
		e.report.Errorf("Command '%s' must have 1-%d arguments", name, command.MaxArgs)
	default:
		e.report.Errorf("%v", err)
	}
}
