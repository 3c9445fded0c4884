package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Olzhassss/flappy-bird/pkg/client"
	"github.com/Olzhassss/flappy-bird/pkg/config"
	"github.com/Olzhassss/flappy-bird/pkg/kv"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/scorecache"
)

// RootOptions holds global flags and the state built from them.
type RootOptions struct {
	ConfigFile string
	BaseURL    string
	CacheDir   string
	Format     string // "json" | "text"
	Verbose    bool

	cfg    *config.AppConfig
	logger *logger.Logger
	redis  *redis.Client
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the leaderboard CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Flappy bird leaderboard client",
		Long:  "Read the flappy bird leaderboard, submit scores and keep track of your best run.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.redis != nil {
				_ = opts.redis.Close()
			}
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a config file")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "url", "", "leaderboard API base URL (overrides LEADERBOARD_URL)")
	cmd.PersistentFlags().StringVar(&opts.CacheDir, "cache-dir", "", "directory holding the local best score")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewBestCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

func (o *RootOptions) setup() error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	cfg, err := config.Load(o.ConfigFile, config.ServiceCLI)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.BaseURL != "" {
		cfg.Client.BaseURL = o.BaseURL
	}
	if o.CacheDir != "" {
		cfg.Client.CacheDir = o.CacheDir
	}
	o.cfg = cfg

	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	o.logger, err = logger.New(logger.Config{
		Level:       level,
		Environment: cfg.Environment,
		ServiceName: config.ServiceCLI,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}
	return nil
}

func (o *RootOptions) client() *client.Client {
	return client.New(o.cfg.Client.BaseURL, o.cfg.Client.Timeout)
}

func (o *RootOptions) scoreCache(ctx context.Context) (*scorecache.Cache, error) {
	var store kv.Store = kv.NewFileStore(o.cfg.Client.CacheDir)
	if o.cfg.Redis.Addr != "" && o.CacheDir == "" {
		if o.redis == nil {
			o.redis = redis.NewClient(&redis.Options{Addr: o.cfg.Redis.Addr})
		}
		store = kv.NewRedisStore(o.redis, "flappy-bird:")
	}

	c, err := scorecache.Load(ctx, store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read local best score", err)
	}
	return c, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
