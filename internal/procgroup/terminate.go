package procgroup

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/marcelocantos/vortex/internal/console"
)

// commLen is the kernel's limit on a process's comm name, including the
// terminating NUL. Listings truncate longer executable names to it.
const commLen = 16

// KillFunc delivers the termination signal to pid.
type KillFunc func(pid int) error

// SigKill sends SIGKILL.
func SigKill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

// Termination records what TerminateAll did.
type Termination struct {
	Killed []int // sibling pids, in signalling order
	Failed []int // sibling pids the signal could not be delivered to
	Self   bool  // whether the caller matched and was signalled last
}

// Matches reports whether a listed process name refers to an executable
// called name, allowing for comm truncation.
func Matches(listed, name string) bool {
	if listed == name {
		return true
	}
	return len(listed) == commLen-1 && strings.HasPrefix(name, listed)
}

// TerminateAll signals every process of the current user named like the
// interpreter, except the caller, and then the caller itself if it was
// listed. A listing failure aborts before anything is signalled.
func (g Group) TerminateAll(ctx context.Context, lister Lister, kill KillFunc, rep *console.Reporter) (Termination, error) {
	var t Termination
	procs, err := lister.List(ctx)
	if err != nil {
		return t, fmt.Errorf("terminate all: %w", err)
	}

	for _, p := range procs {
		if !Matches(p.Name, g.SelfName) {
			continue
		}
		if p.PID == g.SelfPID {
			t.Self = true
			continue
		}
		rep.Infof("Killing process: %d (%s)", p.PID, p.Name)
		if err := kill(p.PID); err != nil {
			t.Failed = append(t.Failed, p.PID)
			continue
		}
		t.Killed = append(t.Killed, p.PID)
	}

	if t.Self {
		rep.Infof("Killing self: %d (%s)", g.SelfPID, g.SelfName)
		if err := kill(g.SelfPID); err != nil {
			return t, fmt.Errorf("terminate self: %w", err)
		}
	}
	return t, nil
}
