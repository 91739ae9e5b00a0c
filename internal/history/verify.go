package history

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Summary describes a verified history.
type Summary struct {
	Entries  int
	Sessions int
}

// Verify checks the history file at path. The hash chain must be unbroken,
// every entry must name the interpreter session that wrote it, and a line's
// statuses must pair up with its commands. Entries from concurrent sessions
// may interleave; each session's own entries must appear in time order.
func Verify(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read history: %w", err)
	}

	lines := splitLines(data)
	expectedPrev := genesisHash()
	var prevSeq uint64
	lastSeen := map[string]Entry{}

	for i, line := range lines {
		n := i + 1
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return Summary{}, fmt.Errorf("line %d: invalid JSON: %w", n, err)
		}

		if entry.Seq != prevSeq+1 {
			return Summary{}, fmt.Errorf("line %d: sequence gap: expected %d, got %d", n, prevSeq+1, entry.Seq)
		}
		if entry.PrevHash != expectedPrev {
			return Summary{}, fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", n, abbrev(expectedPrev), abbrev(entry.PrevHash))
		}
		if computed := computeHash(entry); entry.Hash != computed {
			return Summary{}, fmt.Errorf("line %d: hash mismatch: expected %s, got %s", n, abbrev(computed), abbrev(entry.Hash))
		}
		if err := checkEntry(entry, lastSeen); err != nil {
			return Summary{}, fmt.Errorf("line %d: %w", n, err)
		}

		lastSeen[entry.Session] = entry
		expectedPrev = entry.Hash
		prevSeq = entry.Seq
	}

	return Summary{Entries: len(lines), Sessions: len(lastSeen)}, nil
}

func checkEntry(e Entry, lastSeen map[string]Entry) error {
	if _, err := uuid.Parse(e.Session); err != nil {
		return fmt.Errorf("bad session id %q", e.Session)
	}
	if len(e.Statuses) != 0 && len(e.Statuses) != len(e.Commands) {
		return fmt.Errorf("%d statuses for %d commands", len(e.Statuses), len(e.Commands))
	}
	if prev, ok := lastSeen[e.Session]; ok && e.Time.Before(prev.Time) {
		return fmt.Errorf("session %s goes back in time after seq %d", abbrev(e.Session), prev.Seq)
	}
	return nil
}

// Tail returns the last n entries. Lines that do not decode are skipped.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	lines := splitLines(data)
	if n < 0 {
		n = 0
	}
	if n > len(lines) {
		n = len(lines)
	}

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func abbrev(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
