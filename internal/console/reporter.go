// Package console writes the interpreter's user-facing diagnostics.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Reporter prints diagnostics and notices to the interpreter's console.
// Diagnostics go to the same stream as command output, matching what users
// of the interpreter expect to see interleaved with their commands.
type Reporter struct {
	mu   sync.Mutex
	w    io.Writer
	errc *color.Color
	info *color.Color
}

// NewReporter returns a Reporter writing to w. Colour is applied only when
// useColor is set.
func NewReporter(w io.Writer, useColor bool) *Reporter {
	r := &Reporter{
		w:    w,
		errc: color.New(color.FgRed),
		info: color.New(color.FgYellow),
	}
	if useColor {
		r.errc.EnableColor()
		r.info.EnableColor()
	} else {
		r.errc.DisableColor()
		r.info.DisableColor()
	}
	return r
}

// Errorf prints "Error: <msg>" followed by a newline.
func (r *Reporter) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errc.Fprintf(r.w, "Error: "+format+"\n", args...)
}

// Infof prints a notice followed by a newline.
func (r *Reporter) Infof(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info.Fprintf(r.w, format+"\n", args...)
}

// Printf writes uncoloured output.
func (r *Reporter) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}
