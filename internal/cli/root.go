// Package cli implements the profiletk command line.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"profiletk/internal/config"
	"profiletk/internal/logging"
	"profiletk/internal/toolkit"
)

// env is what every subcommand needs after configuration is loaded.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// newSession creates a session from the loaded configuration.
func (e *env) newSession() (*toolkit.Session, error) {
	opts, err := toolkit.OptionsFromConfig(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	return toolkit.New(opts), nil
}

// NewRootCmd builds the profiletk command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "profiletk",
		Short: "profiletk - profile Go functions and compare runs",
		Long: `Profile functions, accumulate per-function timings across runs
and rank the hotspots of each run.

Reports written by the profiletk sampler can be loaded from files and
compared run by run; the demo command profiles a built-in workload end to
end with every engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			e.cfg = cfg
			e.logger = logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: cfg.Logging.Pretty,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default $PROFILETK_CONFIG or ~/.profiletk/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")

	cmd.AddCommand(newHotspotsCmd(e))
	cmd.AddCommand(newTableCmd(e))
	cmd.AddCommand(newStatsCmd(e))
	cmd.AddCommand(newCompareCmd(e))
	cmd.AddCommand(newDemoCmd(e))

	return cmd
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
