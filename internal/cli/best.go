package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// BestOptions holds flags for the best command.
type BestOptions struct {
	*RootOptions
	Set string
}

// NewBestCommand creates the best command.
func NewBestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "best",
		Short: "Show or overwrite the local best score",
		Long: `Print the best score recorded on this machine.

With --set the stored value is replaced, whether or not it is higher.

Examples:
  leaderboard best
  leaderboard best --set 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runBest(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "replace the stored best score")

	return cmd
}

func runBest(ctx context.Context, cmd *cobra.Command, opts *BestOptions) error {
	best, err := opts.scoreCache(ctx)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("set") {
		if _, err := strconv.ParseInt(opts.Set, 10, 64); err != nil {
			return WrapExitError(ExitCommandError, "invalid score", err)
		}
		if err := best.Set(ctx, opts.Set); err != nil {
			return WrapExitError(ExitCommandError, "failed to save best score", err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, map[string]string{"best": best.Get()})
	}
	fmt.Fprintln(out, best.Get())
	return nil
}
