// Package fileops implements the interpreter's whole-file utilities: word
// count, concatenation to the console, and cross-append of two files.
package fileops

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/marcelocantos/vortex/internal/console"
)

// MaxConcat bounds the number of files one concatenation reads.
const MaxConcat = 6

var (
	// ErrOpen reports a file that could not be opened for reading.
	ErrOpen = errors.New("cannot open file")
	// ErrCreate reports a cross-append operand that could not be opened or created.
	ErrCreate = errors.New("cannot open or create file")
	// ErrAppend reports a short or failed append.
	ErrAppend = errors.New("failed to append")
)

// FileError ties a failure to the file it concerns.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%v %s", e.Err, e.Path) }

func (e *FileError) Unwrap() error { return e.Err }

// Utils runs the file utilities against fs, writing results to out and
// diagnostics to the reporter.
type Utils struct {
	fs     afero.Fs
	out    io.Writer
	report *console.Reporter
}

// New returns Utils over fs. A nil fs means the host filesystem.
func New(fs afero.Fs, out io.Writer, rep *console.Reporter) *Utils {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if rep == nil {
		rep = console.NewReporter(out, false)
	}
	return &Utils{fs: fs, out: out, report: rep}
}

// CountWords counts maximal runs of bytes other than space, newline and tab.
func CountWords(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	words, inWord := 0, false
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return words, nil
		}
		if err != nil {
			return words, err
		}
		switch c {
		case ' ', '\n', '\t':
			inWord = false
		default:
			if !inWord {
				words++
				inWord = true
			}
		}
	}
}

// WordCount prints the number of words in name.
func (u *Utils) WordCount(name string) (int, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		u.report.Errorf("Cannot open file %s", name)
		return 0, &FileError{Path: name, Err: ErrOpen}
	}
	defer f.Close()

	n, err := CountWords(f)
	if err != nil {
		return 0, fmt.Errorf("word count %s: %w", name, err)
	}
	fmt.Fprintf(u.out, "%d\n", n)
	return n, nil
}

// Concat writes each named file to the console in order. A file that cannot
// be read is reported and skipped; the rest are still written.
func (u *Utils) Concat(names []string) []error {
	if len(names) > MaxConcat {
		names = names[:MaxConcat]
	}
	var errs []error
	for _, name := range names {
		if err := u.copyOut(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (u *Utils) copyOut(name string) error {
	f, err := u.fs.Open(name)
	if err != nil {
		u.report.Errorf("Cannot open file %s", name)
		return &FileError{Path: name, Err: ErrOpen}
	}
	defer f.Close()
	if _, err := io.Copy(u.out, f); err != nil {
		return fmt.Errorf("concat %s: %w", name, err)
	}
	return nil
}

// CrossAppend appends b's prior contents to a and a's prior contents
// to b. Missing files are created empty first.
func (u *Utils) CrossAppend(a, b string) error {
	dataA, err := u.readOrCreate(a)
	if err != nil {
		return err
	}
	dataB, err := u.readOrCreate(b)
	if err != nil {
		return err
	}

	var errs []error
	if err := u.appendTo(a, dataB); err != nil {
		errs = append(errs, err)
	}
	if err := u.appendTo(b, dataA); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (u *Utils) readOrCreate(name string) ([]byte, error) {
	f, err := u.fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		u.report.Errorf("Cannot open or create file %s", name)
		return nil, &FileError{Path: name, Err: ErrCreate}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		u.report.Errorf("Cannot open or create file %s", name)
		return nil, &FileError{Path: name, Err: ErrCreate}
	}
	return data, nil
}

func (u *Utils) appendTo(name string, data []byte) error {
	f, err := u.fs.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		u.report.Errorf("Failed to append to %s", name)
		return &FileError{Path: name, Err: ErrAppend}
	}
	n, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil || n != len(data) {
		u.report.Errorf("Failed to append to %s", name)
		return &FileError{Path: name, Err: ErrAppend}
	}
	return nil
}
