package command

// Redirection and operator tokens recognised inside and between segments.
const (
	TokRedirectIn     = "<"  // stdin from file
	TokRedirectOut    = ">"  // stdout to file, truncating
	TokRedirectAppend = ">>" // stdout to file, appending
)

// Hard caps. Exceeding MaxArgs invalidates a descriptor; the chain caps
// stop segment collection in the line classifier.
const (
	MaxArgs       = 5 // program name plus up to four arguments
	MaxChain      = 6 // commands in a pipeline, reverse pipeline or conditional chain
	MaxSequential = 4 // segments in a sequential run
)

// Mode selects how an output redirect opens its target.
type Mode int

const (
	Overwrite Mode = iota
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}
	return "overwrite"
}

// Redirect is an output redirection target.
type Redirect struct {
	Path string `validate:"required"`
	Mode Mode
}

// Descriptor is one parsed command: what to exec and where its standard
// streams come from. Argv[0] is the program name.
type Descriptor struct {
	Program string    `validate:"required"`
	Argv    []string  `validate:"min=1,max=5,dive,required"`
	Input   string    // path for stdin redirect, empty if none
	Output  *Redirect // nil if stdout is inherited
}

// Args returns the arguments after the program name.
func (d *Descriptor) Args() []string {
	if len(d.Argv) < 2 {
		return nil
	}
	return d.Argv[1:]
}

// Operator joins two commands in a conditional chain.
type Operator int

const (
	AndThen Operator = iota // run next if previous succeeded
	OrElse                  // run next if previous failed
)

func (o Operator) String() string {
	switch o {
	case AndThen:
		return "&&"
	case OrElse:
		return "||"
	default:
		return "?"
	}
}
