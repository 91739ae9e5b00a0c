package procgroup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrList reports that the process listing could not be obtained.
var ErrList = errors.New("process listing unavailable")

// Process is one entry of a process listing.
type Process struct {
	PID  int
	Name string
}

// Lister enumerates the current user's processes.
type Lister interface {
	List(ctx context.Context) ([]Process, error)
}

// ProcLister reads /proc directly.
type ProcLister struct {
	Root string // defaults to /proc
	UID  int
}

// NewProcLister returns a ProcLister for the calling user.
func NewProcLister() *ProcLister {
	return &ProcLister{Root: "/proc", UID: os.Getuid()}
}

// List returns every process in Root whose real uid is l.UID.
func (l *ProcLister) List(ctx context.Context) ([]Process, error) {
	root := l.Root
	if root == "" {
		root = "/proc"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrList, err)
	}
	uid := strconv.Itoa(l.UID)
	var procs []Process
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		// Processes can exit while we walk; skip anything unreadable.
		if realUID(filepath.Join(root, entry.Name(), "status")) != uid {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(root, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		procs = append(procs, Process{PID: pid, Name: strings.TrimSpace(string(comm))})
	}
	return procs, nil
}

func realUID(statusPath string) string {
	data, err := os.ReadFile(statusPath)
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Uid:") {
			fields := strings.Fields(line)
			if len(fields) > 1 {
				return fields[1]
			}
			return ""
		}
	}
	return ""
}

// PSLister runs the ps utility.
type PSLister struct {
	Path string // defaults to "ps"
	UID  int
}

// NewPSLister returns a PSLister for the calling user.
func NewPSLister() *PSLister {
	return &PSLister{Path: "ps", UID: os.Getuid()}
}

// List runs "ps -u <uid> -o pid=,comm=" and parses its output.
func (l *PSLister) List(ctx context.Context) ([]Process, error) {
	path := l.Path
	if path == "" {
		path = "ps"
	}
	out, err := exec.CommandContext(ctx, path, "-u", strconv.Itoa(l.UID), "-o", "pid=,comm=").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrList, path, err)
	}
	return parsePS(out), nil
}

// parsePS reads "<pid> <name>" lines, skipping anything else (such as a
// header row).
func parsePS(out []byte) []Process {
	var procs []Process
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, Process{PID: pid, Name: fields[1]})
	}
	return procs
}

// NewLister returns the lister named by kind ("proc" or "ps").
func NewLister(kind string) (Lister, error) {
	switch kind {
	case "", "proc":
		return NewProcLister(), nil
	case "ps":
		return NewPSLister(), nil
	default:
		return nil, fmt.Errorf("unknown process lister %q", kind)
	}
}
