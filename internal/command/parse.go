package command

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anmitsu/go-shlex"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrArgCount reports a descriptor whose argument count is outside [1, MaxArgs].
	ErrArgCount = errors.New("argument count out of range")
	// ErrMissingTarget reports a redirection operator with no file after it.
	ErrMissingTarget = errors.New("redirect requires a file path")
	// ErrSyntax reports a segment the tokenizer could not split.
	ErrSyntax = errors.New("syntax error")
)

// ValidationError describes why a segment did not yield a Descriptor.
type ValidationError struct {
	Segment string // raw segment text
	Name    string // program name, if one was found
	Count   int    // arguments found, program name included
	Err     error
}

func (e *ValidationError) Error() string {
	name := e.Name
	if name == "" {
		name = strings.TrimSpace(e.Segment)
	}
	return fmt.Sprintf("command %q: %v", name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// literalTokenizer splits on whitespace only. Quotes and backslashes are
// ordinary word characters.
type literalTokenizer struct {
	shlex.DefaultTokenizer
}

func (literalTokenizer) IsQuote(rune) bool        { return false }
func (literalTokenizer) IsEscape(rune) bool       { return false }
func (literalTokenizer) IsEscapedQuote(rune) bool { return false }

// split breaks a segment into whitespace-separated words, verbatim.
func split(segment string) ([]string, error) {
	lex := shlex.NewLexerString(segment, true, true)
	lex.SetTokenizer(&literalTokenizer{})
	return lex.Split()
}

// Parse splits one operator-free segment into a Descriptor. Redirection
// tokens and their targets are removed from the argument list before the
// argument-count invariant is checked.
func Parse(segment string) (*Descriptor, error) {
	tokens, err := split(segment)
	if err != nil {
		return nil, &ValidationError{Segment: segment, Err: fmt.Errorf("%w: %v", ErrSyntax, err)}
	}

	d := &Descriptor{}
	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; tok {
		case TokRedirectIn, TokRedirectOut, TokRedirectAppend:
			if i+1 >= len(tokens) {
				return nil, &ValidationError{Segment: segment, Name: first(d.Argv), Err: fmt.Errorf("%s: %w", tok, ErrMissingTarget)}
			}
			i++
			switch tok {
			case TokRedirectIn:
				d.Input = tokens[i]
			case TokRedirectOut:
				d.Output = &Redirect{Path: tokens[i], Mode: Overwrite}
			default:
				d.Output = &Redirect{Path: tokens[i], Mode: Append}
			}
		default:
			d.Argv = append(d.Argv, tok)
		}
	}
	d.Program = first(d.Argv)

	if err := d.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Segment = segment
		}
		return nil, err
	}
	return d, nil
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	err := validatorInstance().Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{Name: d.Program, Count: len(d.Argv)}
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Argv", "Program":
			ve.Err = ErrArgCount
			return ve
		}
	}
	ve.Err = fmt.Errorf("invalid %s", fieldErrs[0].Namespace())
	return ve
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
