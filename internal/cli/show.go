package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current leaderboard",
		Long: `Fetch the top entries from the leaderboard API and print them ranked.

Examples:
  leaderboard show
  leaderboard show --url https://flappy.example.com --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), rootOpts, cmd.OutOrStdout())
		},
	}
}

func runShow(ctx context.Context, opts *RootOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := opts.client().Leaderboard(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load leaderboard", err)
	}

	if opts.Format == "json" {
		if entries == nil {
			entries = []leaderboard.Entry{}
		}
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "The leaderboard is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, e.Name, e.Score)
	}
	return tw.Flush()
}
