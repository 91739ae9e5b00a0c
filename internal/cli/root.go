// Package cli wires the interpreter's command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/vortex/internal/config"
)

// exitError carries a process exit status out of a cobra RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type options struct {
	configPath string
	command    string
	version    string
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFrom(o.configPath)
	}
	return config.Load()
}

// NewRootCommand builds the vortex command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &options{version: version}

	root := &cobra.Command{
		Use:   "vortex",
		Short: "A small line-oriented command interpreter",
		Long: `vortex reads one line at a time and runs it as a single command, a
pipeline (a | b), a reverse pipeline (b = a), a sequence (a; b), or a
conditional chain (a && b || c). Lines starting with # count words in a
file, a + b prints files, and a ~ b cross-appends two files.

killterm exits; killallterms terminates every running vortex.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			code := runInterpreter(cmd.Context(), cfg, opts.command, cmd.Flags().Changed("command"), stdio{
				in:  cmd.InOrStdin(),
				out: cmd.OutOrStdout(),
				err: cmd.ErrOrStderr(),
			})
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	root.Flags().StringVarP(&opts.command, "command", "c", "", "run one line and exit")

	root.AddCommand(newHistoryCommand(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vortex %s\n", opts.version)
		},
	})
	return root
}

// Execute runs the command line and returns the process exit status.
func Execute(version string) int {
	return execute(NewRootCommand(version), os.Args[1:], os.Stderr)
}

func execute(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "vortex: %v\n", err)
	return 1
}
