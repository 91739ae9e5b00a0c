package history

import "time"

// Entry is one executed input line.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	Session    string    `json:"session"` // interpreter instance that ran the line
	PrevHash   string    `json:"prev_hash"`
	Line       string    `json:"line"`            // raw input line
	Mode       string    `json:"mode"`            // classified line mode
	Commands   []string  `json:"commands"`        // program name per command
	Statuses   []int     `json:"statuses"`        // exit status per command, -1 if skipped
	Error      string    `json:"error,omitempty"` // line-level failure
	DurationMS float64   `json:"duration_ms"`
	Cwd        string    `json:"cwd"`
	Hash       string    `json:"hash"` // SHA-256 of this entry with hash empty
}

// Record is what the caller knows about a finished line.
type Record struct {
	Line     string
	Mode     string
	Commands []string
	Statuses []int
	Err      error
	Duration time.Duration
	Cwd      string
}
