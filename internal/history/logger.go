// Package history keeps an append-only, hash-chained JSONL record of the
// lines the interpreter executed.
package history

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const genesisInput = "vortex-genesis"

// Logger appends entries to a history file. Several Loggers, in this process
// or others, may share one file: each append takes an exclusive lock and
// extends whatever chain it finds on disk.
type Logger struct {
	mu      sync.Mutex
	path    string
	session string
}

// NewLogger prepares the history at path. Each Logger gets a fresh session id.
func NewLogger(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Logger{path: path, session: uuid.NewString()}, nil
}

// Log appends r to the history.
func (l *Logger) Log(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	seq, prevHash, err := chainHead(f)
	if err != nil {
		return err
	}

	entry := Entry{
		Seq:        seq + 1,
		Time:       time.Now().UTC(),
		Session:    l.session,
		PrevHash:   prevHash,
		Line:       r.Line,
		Mode:       r.Mode,
		Commands:   r.Commands,
		Statuses:   r.Statuses,
		DurationMS: float64(r.Duration.Microseconds()) / 1000.0,
		Cwd:        r.Cwd,
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	entry.Hash = computeHash(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}
	return nil
}

// chainHead returns the sequence number and hash of the last entry in f, or
// the genesis state for an empty file.
func chainHead(f *os.File) (uint64, string, error) {
	line, err := lastLine(f)
	if err != nil {
		return 0, "", fmt.Errorf("read history: %w", err)
	}
	if line == nil {
		return 0, genesisHash(), nil
	}
	var last Entry
	if err := json.Unmarshal(line, &last); err != nil {
		return 0, "", fmt.Errorf("history tail is corrupt: %w", err)
	}
	return last.Seq, last.Hash, nil
}

// lastLine reads f backwards until it holds the whole final line.
func lastLine(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	const chunk = 4096
	var buf []byte
	for off := info.Size(); off > 0; {
		n := int64(chunk)
		if off < n {
			n = off
		}
		off -= n
		b := make([]byte, n)
		if _, err := f.ReadAt(b, off); err != nil {
			return nil, err
		}
		buf = append(b, buf...)
		trimmed := bytes.TrimRight(buf, "\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return trimmed[i+1:], nil
		}
		if off == 0 && len(trimmed) > 0 {
			return trimmed, nil
		}
	}
	return nil, nil
}

// Path returns the history file path.
func (l *Logger) Path() string {
	return l.path
}

// Session returns this logger's session id.
func (l *Logger) Session() string {
	return l.session
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", h)
}

func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
