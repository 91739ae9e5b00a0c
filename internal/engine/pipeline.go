// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/marcelocantos/vortex/internal/command"
)

type pipeEnds struct {
	r, w *os.File
}

// wiring says, for a topology of n commands, in which order to spawn them
// and which pipe ends command i uses. A nil end means the interpreter's
// own stream.
type wiring struct {
	order func(n int) []int
	ends  func(pipes []pipeEnds, i int) (in, out *os.File)
}

// forward: data flows from ds[0] to ds[n-1].
var forward = wiring{
	order: func(n int) []int {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	},
	ends: func(pipes []pipeEnds, i int) (in, out *os.File) {
		if i > 0 {
			in = pipes[i-1].r
		}
		if i < len(pipes) {
			out = pipes[i].w
		}
		return in, out
	},
}

// reverse: data flows from ds[n-1] to ds[0]. Producers are spawned first.
var reverse = wiring{
	order: func(n int) []int {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = n - 1 - i
		}
		return idx
	},
	ends: func(pipes []pipeEnds, i int) (in, out *os.File) {
		if i < len(pipes) {
			in = pipes[i].r
		}
		if i > 0 {
			out = pipes[i-1].w
		}
		return in, out
	},
}

// RunPipeline connects ds left to right: each command's stdout feeds the
// next command's stdin and the last command writes to the interpreter's
// stdout.
func (e *Engine) RunPipeline(ctx context.Context, ds []*command.Descriptor) ([]Result, error) {
	return e.runTopology(ctx, "pipeline", ds, forward)
}

// RunReverse connects ds right to left: the last command produces, each
// command's stdout feeds the previous command's stdin, and the first
// command writes to the interpreter's stdout. Results stay indexed by
// position in ds.
func (e *Engine) RunReverse(ctx context.Context, ds []*command.Descriptor) ([]Result, error) {
	return e.runTopology(ctx, "reverse pipeline", ds, reverse)
}

func (e *Engine) runTopology(ctx context.Context, what string, ds []*command.Descriptor, wire wiring) ([]Result, error) {
	n := len(ds)
	if n < 2 || n > command.MaxChain {
		return nil, fmt.Errorf("%s: %w: %d", what, ErrChainLength, n)
	}

	pipes, err := e.openPipes(n - 1)
	if err != nil {
		e.report.Errorf("Pipe creation failed")
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	results := make([]Result, n)
	children := make([]*Child, n)
	for _, i := range wire.order(n) {
		d := ds[i]
		in, out := wire.ends(pipes, i)
		var stdin io.Reader = e.stdin
		var stdout io.Writer = e.stdout
		if in != nil {
			stdin = in
		}
		if out != nil {
			stdout = out
		}

		child, err := e.spawn(ctx, d, stdin, stdout)
		if err != nil {
			e.reportSpawn(err)
			results[i] = Result{Name: d.Program, Status: FailureStatus}
			continue
		}
		children[i] = child
		results[i] = Result{Name: d.Program, Pid: child.Pid(), Spawned: true}
	}

	// The children hold their own copies now. Until these are closed, no
	// reader can see EOF.
	closePipes(pipes)

	for i, child := range children {
		if child == nil {
			continue
		}
		results[i].Status = child.Wait()
	}
	return results, nil
}

// openPipes creates all n pipes or none.
func (e *Engine) openPipes(n int) ([]pipeEnds, error) {
	pipes := make([]pipeEnds, 0, n)
	for i := 0; i < n; i++ {
		r, w, err := e.pipe()
		if err != nil {
			closePipes(pipes)
			return nil, fmt.Errorf("%w: pipe %d: %v", ErrPipe, i, err)
		}
		pipes = append(pipes, pipeEnds{r: r, w: w})
	}
	return pipes, nil
}

func closePipes(pipes []pipeEnds) {
	for _, p := range pipes {
		p.r.Close()
		p.w.Close()
	}
}
