// Package procgroup keeps the interpreter and every process it spawns in one
// process group, and implements terminating every running instance of the
// interpreter.
package procgroup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// SelfCmdline is where the running process's own argv is read from.
const SelfCmdline = "/proc/self/cmdline"

// DefaultName is used when the process name cannot be resolved.
const DefaultName = "vortex"

// Group is the process-wide process-group configuration, captured once at
// startup and passed to everything that spawns.
type Group struct {
	Pgid     int    // group shared by the interpreter and its children; 0 = don't set
	SelfPID  int    // the interpreter's own pid
	SelfName string // executable base name used to find sibling instances
}

// Setup makes the calling process the leader of its own process group and
// captures the resulting Group. A setpgid failure (for example when the
// process already leads a session) is returned alongside a Group that still
// describes the group the process is actually in.
func Setup(name string) (Group, error) {
	g := Group{SelfPID: unix.Getpid(), SelfName: name}
	err := unix.Setpgid(0, 0)
	g.Pgid = unix.Getpgrp()
	if err != nil {
		return g, fmt.Errorf("setpgid: %w", err)
	}
	return g, nil
}

// SysProcAttr returns the attributes that place a child in the group, or nil
// when no group is configured.
func (g Group) SysProcAttr() *syscall.SysProcAttr {
	if g.Pgid <= 0 {
		return nil
	}
	return &syscall.SysProcAttr{Setpgid: true, Pgid: g.Pgid}
}

// SelfName resolves the base name of argv[0] from a cmdline file in /proc
// format. Any failure yields fallback together with the error.
func SelfName(cmdlinePath, fallback string) (string, error) {
	data, err := os.ReadFile(cmdlinePath)
	if err != nil {
		return fallback, fmt.Errorf("read %s: %w", cmdlinePath, err)
	}
	argv0, _, _ := bytes.Cut(data, []byte{0})
	if len(argv0) == 0 {
		return fallback, fmt.Errorf("read %s: empty command line", cmdlinePath)
	}
	return filepath.Base(string(argv0)), nil
}
