package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marcelocantos/vortex/internal/console"
	"github.com/marcelocantos/vortex/internal/engine"
	"github.com/marcelocantos/vortex/internal/fileops"
	"github.com/marcelocantos/vortex/internal/history"
	"github.com/marcelocantos/vortex/internal/procgroup"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeLister struct {
	procs []procgroup.Process
	err   error
}

func (f *fakeLister) List(context.Context) ([]procgroup.Process, error) { return f.procs, f.err }

type harness struct {
	shell  *Shell
	out    *syncBuffer
	fs     afero.Fs
	killed []int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{out: &syncBuffer{}, fs: afero.NewMemMapFs()}
	group := procgroup.Group{Pgid: unix.Getpgrp(), SelfPID: os.Getpid(), SelfName: "vortex"}
	rep := console.NewReporter(h.out, false)
	eng := engine.New(group,
		engine.WithStdio(strings.NewReader(""), h.out, &syncBuffer{}),
		engine.WithReporter(rep),
	)
	files := fileops.New(h.fs, h.out, rep)
	kill := func(pid int) error {
		h.killed = append(h.killed, pid)
		return nil
	}
	opts = append([]Option{WithKill(kill), WithLister(&fakeLister{})}, opts...)
	h.shell = New(eng, files, group, opts...)
	return h
}

func TestExecuteModes(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"echo hello", "hello\n"},
		{"echo hi | tr a-z A-Z", "HI\n"},
		{"echo hi |", "hi\n"},
		{"tr a-z A-Z = echo hi", "HI\n"},
		{"cat = tr a-z A-Z = echo reversed", "REVERSED\n"},
		{"echo one; false; echo three", "one\nthree\n"},
		{"echo one;; ;echo two", "one\ntwo\n"},
		{"false && echo A || echo B", "B\n"},
		{"true && echo A || echo B", "A\n"},
		{"false || false || echo last", "last\n"},
		{"   ", ""},
		{"no-such-program-vortex", "Error: Command 'no-such-program-vortex' not found\n"},
		{"echo 1 2 3 4 5", "Error: Command 'echo' must have 1-5 arguments\n"},
		{"a ~", "Error: Two text files required for ~ operation\n"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h := newHarness(t)
			assert.False(t, h.shell.Execute(context.Background(), tt.line))
			assert.Equal(t, tt.want, h.out.String())
		})
	}
}

func TestExecuteInvalidSegmentAbortsPipeline(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	tests := []string{
		"touch " + marker + " | echo 1 2 3 4 5 | cat",
		"cat = echo 1 2 3 4 5 = touch " + marker,
	}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			h := newHarness(t)
			h.shell.Execute(context.Background(), line)
			assert.NoFileExists(t, marker)
			assert.True(t, strings.HasPrefix(h.out.String(), "Error: "), h.out.String())
		})
	}
}

func TestExecuteInvalidSegmentFailsInConditional(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"echo 1 2 3 4 5 || echo fallback", "Error: Command 'echo' must have 1-5 arguments\nfallback\n"},
		{"echo 1 2 3 4 5 && echo never", "Error: Command 'echo' must have 1-5 arguments\n"},
		{"true && > out || echo recovered", "Error: Command '> out' must have 1-5 arguments\nrecovered\n"},
		// Reported up front even when short-circuited.
		{"true || echo 1 2 3 4 5 && echo after", "Error: Command 'echo' must have 1-5 arguments\nafter\n"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h := newHarness(t)
			h.shell.Execute(context.Background(), tt.line)
			assert.Equal(t, tt.want, h.out.String())
		})
	}
}

func TestExecuteTooLong(t *testing.T) {
	h := newHarness(t)
	h.shell.Execute(context.Background(), "echo "+strings.Repeat("x", 300))
	assert.Equal(t, "Error: Input exceeds 256 characters\n", h.out.String())

	h = newHarness(t, WithMaxLine(1024))
	h.shell.Execute(context.Background(), "echo "+strings.Repeat("x", 300))
	assert.Equal(t, strings.Repeat("x", 300)+"\n", h.out.String())
}

func TestExecuteFileUtilities(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "a.txt", []byte("one two\n"), 0644))
	require.NoError(t, afero.WriteFile(h.fs, "b.txt", []byte("three\n"), 0644))
	ctx := context.Background()

	h.shell.Execute(ctx, "# a.txt")
	h.shell.Execute(ctx, "a.txt + b.txt")
	h.shell.Execute(ctx, "a.txt ~ b.txt")
	h.shell.Execute(ctx, "#missing.txt")

	assert.Equal(t, "2\none two\nthree\nError: Cannot open file missing.txt\n", h.out.String())
	a, err := afero.ReadFile(h.fs, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one two\nthree\n", string(a))
}

func TestExecuteExit(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.shell.Execute(context.Background(), "  killterm  "))
	assert.Empty(t, h.killed)
}

func TestExecuteTerminateAll(t *testing.T) {
	self := os.Getpid()
	lister := &fakeLister{procs: []procgroup.Process{
		{PID: self, Name: "vortex"},
		{PID: 4242, Name: "bash"},
		{PID: 4343, Name: "vortex"},
	}}
	h := newHarness(t, WithLister(lister))

	assert.True(t, h.shell.Execute(context.Background(), "killallterms"))
	assert.Equal(t, []int{4343, self}, h.killed)
	assert.Equal(t,
		"Killing process: 4343 (vortex)\nKilling self: "+strconv.Itoa(self)+" (vortex)\n",
		h.out.String())
}

func TestExecuteTerminateAllListingFails(t *testing.T) {
	lister := &fakeLister{err: procgroup.ErrList}
	h := newHarness(t, WithLister(lister))

	assert.False(t, h.shell.Execute(context.Background(), "killallterms"))
	assert.Empty(t, h.killed)
	assert.True(t, strings.HasPrefix(h.out.String(), "Error: Cannot list processes"))
}

func TestExecuteRecordsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	logger, err := history.NewLogger(path)
	require.NoError(t, err)
	h := newHarness(t, WithHistory(logger))
	ctx := context.Background()

	h.shell.Execute(ctx, "false && echo skipped || echo ran")
	h.shell.Execute(ctx, "")
	h.shell.Execute(ctx, "echo a | echo 1 2 3 4 5")
	h.shell.Execute(ctx, "killterm")

	sum, err := history.Verify(path)
	require.NoError(t, err)
	assert.Equal(t, history.Summary{Entries: 3, Sessions: 1}, sum)
	entries, err := history.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3, "empty lines are not recorded")

	assert.Equal(t, "conditional", entries[0].Mode)
	assert.Equal(t, []string{"false", "echo", "echo"}, entries[0].Commands)
	assert.Equal(t, []int{1, SkippedStatus, 0}, entries[0].Statuses)

	assert.Equal(t, "pipeline", entries[1].Mode)
	assert.Equal(t, []int{SkippedStatus, SkippedStatus}, entries[1].Statuses)
	assert.NotEmpty(t, entries[1].Error)

	assert.Equal(t, "exit", entries[2].Mode)
	assert.Equal(t, logger.Session(), entries[2].Session)
}

func TestRunStopsAtKillterm(t *testing.T) {
	h := newHarness(t)
	in := NewScanReader(strings.NewReader("echo one\nkillterm\necho never\n"))
	require.NoError(t, h.shell.Run(context.Background(), in))
	assert.Equal(t, "one\n", h.out.String())
}

func TestRunUntilEOF(t *testing.T) {
	h := newHarness(t)
	in := NewScanReader(strings.NewReader("echo one\n\necho two"))
	require.NoError(t, h.shell.Run(context.Background(), in))
	assert.Equal(t, "one\ntwo\n", h.out.String())
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.shell.Run(ctx, NewScanReader(strings.NewReader("echo one\n")))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, h.out.String())
}

func TestStatus(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"true", 0},
		{"false", 1},
		{"false && echo skipped", 1},
		{"echo a | false", 1},
		{"no-such-program-vortex", engine.FailureStatus},
		{"echo 1 2 3 4 5", engine.FailureStatus},
		{"#missing.txt", engine.FailureStatus},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h := newHarness(t)
			h.shell.Execute(context.Background(), tt.line)
			assert.Equal(t, tt.want, h.shell.Status())
		})
	}
}

func TestStatusFromScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "exit7.sh")
	require.NoError(t, os.WriteFile(script, []byte("exit 7\n"), 0644))

	h := newHarness(t)
	h.shell.Execute(context.Background(), "sh "+script)
	assert.Equal(t, 7, h.shell.Status())

	h.shell.Execute(context.Background(), "sh < "+script+" || true")
	assert.Equal(t, 0, h.shell.Status())
}

func TestHistoryFailureNamesFile(t *testing.T) {
	path := t.TempDir()
	logger, err := history.NewLogger(path)
	require.NoError(t, err)
	h := newHarness(t, WithHistory(logger))

	assert.False(t, h.shell.Execute(context.Background(), "echo ran"))
	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "ran\nError: history "+path+": open history:"), out)
}
