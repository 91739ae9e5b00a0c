package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/vortex/internal/history"
)

func newHistoryCommand(opts *options) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run history",
	}

	historyCmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check the history hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			sum, err := history.Verify(cfg.History.Path)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "history verification FAILED: %v\n", err)
				return &exitError{code: 1}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "history integrity verified (%d entries, %d sessions)\n", sum.Entries, sum.Sessions)
			return nil
		},
	})

	var n int
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			entries, err := history.Tail(cfg.History.Path, n)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "no history entries")
				return nil
			}
			for _, e := range entries {
				data, _ := json.MarshalIndent(e, "", "  ")
				fmt.Fprintf(w, "%s\n", data)
			}
			return nil
		},
	}
	tailCmd.Flags().IntVarP(&n, "lines", "n", 20, "number of entries to show")
	historyCmd.AddCommand(tailCmd)

	return historyCmd
}
