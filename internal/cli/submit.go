package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Olzhassss/flappy-bird/pkg/client"
	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
)

// Nickname prompt settings
const (
	PromptTitle     = "Submit Score to the Leaderboard"
	PromptBody      = "Provide a nickname to submit your score."
	DefaultNickname = "Anonymous Grand Floppus"

	promptMinLength = 3
	promptMaxLength = 25
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Name  string
	Score int64
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a score to the leaderboard",
		Long: `Submit a score under a nickname. Without --name the nickname is
read from standard input, defaulting to "` + DefaultNickname + `".

The local best score is updated when the submitted score beats it.

Examples:
  leaderboard submit --score 42
  leaderboard submit --score 42 --name Ann`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "nickname to submit under (prompted when empty)")
	cmd.Flags().Int64Var(&opts.Score, "score", 0, "score to submit (required)")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}

func runSubmit(cmd *cobra.Command, opts *SubmitOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	name := opts.Name
	if name == "" {
		var err error
		name, err = promptNickname(cmd.InOrStdin(), out)
		if err != nil {
			return WrapExitError(ExitCommandError, "no nickname given", err)
		}
	}
	switch n := leaderboard.NameLength(name); {
	case n < leaderboard.MinNameLength:
		fmt.Fprintf(out, "Note: names shorter than %d characters are not kept on the leaderboard.\n", leaderboard.MinNameLength)
	case n > leaderboard.MaxNameLength:
		fmt.Fprintf(out, "Note: names longer than %d characters are not kept on the leaderboard.\n", leaderboard.MaxNameLength)
	}

	if err := opts.client().Submit(ctx, name, opts.Score); err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			return WrapExitError(ExitFailure, "score rejected", err)
		}
		return WrapExitError(ExitFailure, "failed to submit score", err)
	}
	opts.logger.Debug("score submitted", zap.String("name", name), zap.Int64("score", opts.Score))

	best, err := opts.scoreCache(ctx)
	if err != nil {
		return err
	}

	if opts.Format != "json" {
		fmt.Fprintf(out, "Submitted %d as %s.\n", opts.Score, name)
		previous := best.Get()
		unsubscribe := best.Subscribe(func(v string) {
			if v != previous {
				fmt.Fprintf(out, "New best score: %s\n", v)
			}
		})
		defer unsubscribe()
	}

	improved, err := best.RecordIfHigher(ctx, opts.Score)
	if err != nil {
		// The score is already on the server; only the local copy is stale
		opts.logger.Warn("failed to save local best score", zap.Error(err))
	}

	if opts.Format == "json" {
		return writeJSON(out, map[string]interface{}{
			"name":     name,
			"score":    opts.Score,
			"new_best": improved,
			"best":     best.Get(),
		})
	}
	return nil
}

// promptNickname asks for a nickname until one of acceptable length is given.
// An empty answer picks DefaultNickname.
func promptNickname(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, PromptTitle)
	fmt.Fprintln(out, PromptBody)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Nickname [%s]: ", DefaultNickname)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}

		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			return DefaultNickname, nil
		}
		if n := leaderboard.NameLength(name); n < promptMinLength || n > promptMaxLength {
			fmt.Fprintf(out, "Nickname must be between %d and %d characters.\n", promptMinLength, promptMaxLength)
			continue
		}
		return name, nil
	}
}
