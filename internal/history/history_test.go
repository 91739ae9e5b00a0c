package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func logLines(t *testing.T, l *Logger, lines ...string) {
	t.Helper()
	for i, line := range lines {
		err := l.Log(Record{
			Line:     line,
			Mode:     "single",
			Commands: strings.Fields(line)[:1],
			Statuses: []int{0},
			Duration: time.Duration(i) * time.Millisecond,
			Cwd:      "/tmp",
		})
		if err != nil {
			t.Fatalf("log %q: %v", line, err)
		}
	}
}

func TestLogAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	logLines(t, l, "echo one", "echo two", "ls", "pwd", "true")

	sum, err := Verify(path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if sum.Entries != 5 || sum.Sessions != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestLogRecordsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	err = l.Log(Record{
		Line:     "a | b",
		Mode:     "pipeline",
		Commands: []string{"a", "b"},
		Statuses: []int{1, -1},
		Err:      errors.New("pipe creation failed"),
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := Tail(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Error != "pipe creation failed" {
		t.Errorf("error = %q", e.Error)
	}
	if e.Session != l.Session() || e.Session == "" {
		t.Errorf("session = %q, want %q", e.Session, l.Session())
	}
	if len(e.Statuses) != 2 || e.Statuses[1] != -1 {
		t.Errorf("statuses = %v", e.Statuses)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logLines(t, l, "echo one", "echo two", "echo three")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(data, []byte(`"line":"echo two"`), []byte(`"line":"echo 2wo"`), 1)
	if bytes.Equal(data, tampered) {
		t.Fatal("tamper target not found")
	}
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatal(err)
	}

	_, err = Verify(path)
	if err == nil {
		t.Fatal("expected verify to detect tampering")
	}
	if !strings.Contains(err.Error(), "line 2: hash mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logLines(t, l, "a", "b", "c", "d", "e")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(data)
	remaining := append(lines[:2], lines[3:]...)
	var newData []byte
	for _, line := range remaining {
		newData = append(newData, line...)
		newData = append(newData, '\n')
	}
	if err := os.WriteFile(path, newData, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(path); err == nil {
		t.Fatal("expected verify to detect sequence gap")
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(path); err != nil {
		t.Fatalf("empty history should be valid: %v", err)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	if _, err := Verify(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing history")
	}
}

func TestLoggerResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")

	first, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logLines(t, first, "echo first", "echo second")

	second, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if second.Session() == first.Session() {
		t.Error("each logger should start a new session")
	}
	logLines(t, second, "echo third")

	if _, err := Verify(path); err != nil {
		t.Fatalf("chain should be valid after restart: %v", err)
	}

	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Seq != 3 {
		t.Errorf("expected seq 3, got %d", entries[2].Seq)
	}
	if entries[0].Session == entries[2].Session {
		t.Error("resumed entries should carry the new session id")
	}
}

func TestTailLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logLines(t, l, "a", "b", "c")

	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Line != "b" || entries[1].Line != "c" {
		t.Errorf("tail 2 = %+v", entries)
	}

	entries, err = Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("tail 0 returned %d entries", len(entries))
	}
}

func TestConcurrentSessionsShareChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	a, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, l := range []*Logger{a, b} {
		wg.Add(1)
		go func(l *Logger) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if err := l.Log(Record{Line: "true", Mode: "single", Commands: []string{"true"}, Statuses: []int{0}}); err != nil {
					t.Error(err)
					return
				}
			}
		}(l)
	}
	wg.Wait()

	sum, err := Verify(path)
	if err != nil {
		t.Fatalf("interleaved sessions should form one chain: %v", err)
	}
	if sum.Entries != 40 || sum.Sessions != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestLogRefusesCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte("{not json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	err = l.Log(Record{Line: "true"})
	if err == nil || !strings.Contains(err.Error(), "history tail is corrupt") {
		t.Fatalf("expected corrupt tail error, got %v", err)
	}
}

// rewriteLast replaces the last entry with the result of edit, rehashed so the
// chain itself stays intact.
func rewriteLast(t *testing.T, path string, edit func(*Entry)) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(data)
	var e Entry
	if err := json.Unmarshal(lines[len(lines)-1], &e); err != nil {
		t.Fatal(err)
	}
	edit(&e)
	e.Hash = computeHash(e)
	line, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	lines[len(lines)-1] = line
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
		out = append(out, '\n')
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyChecksEntryShape(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Entry)
		want string
	}{
		{"status count", func(e *Entry) { e.Statuses = []int{0, 0} }, "line 2: 2 statuses for 1 commands"},
		{"missing session", func(e *Entry) { e.Session = "" }, `line 2: bad session id ""`},
		{"time reversal", func(e *Entry) { e.Time = e.Time.Add(-time.Hour) }, "line 2: session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.jsonl")
			l, err := NewLogger(path)
			if err != nil {
				t.Fatal(err)
			}
			logLines(t, l, "echo one", "echo two")
			rewriteLast(t, path, tt.edit)

			_, err = Verify(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Verify() = %v, want %q", err, tt.want)
			}
		})
	}
}
