package cli

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Count       int
	Concurrency int
	MaxScore    int64
	Seed        int64
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Submitted int64         `json:"submitted"`
	Failed    int64         `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

var (
	seedAdjectives = []string{"Grand", "Tiny", "Swift", "Clumsy", "Brave", "Sleepy", "Lucky", "Flappy"}
	seedNouns      = []string{"Floppus", "Pigeon", "Sparrow", "Finch", "Robin", "Pipe", "Feather"}
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the leaderboard with random entries",
		Long: `Submit randomly named entries with random scores, for local
development and load testing.

Examples:
  leaderboard seed --count 100
  leaderboard seed --count 5000 --concurrency 16 --max-score 300`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runSeed(ctx, cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 50, "number of entries to submit")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "parallel submissions")
	cmd.Flags().Int64Var(&opts.MaxScore, "max-score", 200, "upper bound for random scores")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 uses the clock)")

	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, opts *SeedOptions) error {
	if opts.Count < 0 || opts.Concurrency < 1 || opts.MaxScore < 1 {
		return NewExitError(ExitCommandError, "--count must be >= 0, --concurrency and --max-score >= 1")
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	var rngMu sync.Mutex

	c := opts.client()
	jobs := make(chan int)
	var submitted, failed int64
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				rngMu.Lock()
				name := fmt.Sprintf("%s %s %d",
					seedAdjectives[rng.Intn(len(seedAdjectives))],
					seedNouns[rng.Intn(len(seedNouns))],
					rng.Intn(1000))
				score := rng.Int63n(opts.MaxScore + 1)
				rngMu.Unlock()

				if err := c.Submit(ctx, name, score); err != nil {
					atomic.AddInt64(&failed, 1)
					opts.logger.Warn("seed submission failed", zap.String("name", name), zap.Error(err))
					continue
				}
				atomic.AddInt64(&submitted, 1)
			}
		}()
	}

feed:
	for i := 0; i < opts.Count; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	res := SeedResult{Submitted: submitted, Failed: failed, Duration: time.Since(start)}
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Submitted %d entries (%d failed) in %s.\n", res.Submitted, res.Failed, res.Duration.Round(time.Millisecond))
	}

	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d submissions failed", res.Failed))
	}
	return nil
}
