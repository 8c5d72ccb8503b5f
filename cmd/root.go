// Package cmd defines the CLI commands for the videoscan executable.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/config"
	"github.com/civicwire/videoscan/internal/logging"
	"github.com/civicwire/videoscan/internal/scanner"
)

// Exit codes for the discover command. ExitNoneFound is recognized by
// callers as "nothing to do", not a failure.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitNoneFound = 2
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videoscan",
		Short: "Incremental discovery of municipal meeting videos",
		Long: `videoscan finds newly published meeting recordings on a shared,
multi-tenant video platform by probing a sequential ID namespace. Discovery
is incremental: scan progress is checkpointed through a remote store with a
local-file fallback, so restarts and redeploys never rescan covered ranges.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the CLI and maps outcomes to exit codes: 0 found or served
// cleanly, 2 nothing new, 1 anything broken. Diagnostics go to stderr only.
func Execute() {
	err := newRootCmd().Execute()
	if err == nil {
		os.Exit(ExitOK)
	}
	if errors.Is(err, scanner.ErrNoneFound) {
		if logger != nil {
			logger.Info("no new videos")
		}
		os.Exit(ExitNoneFound)
	}
	if logger != nil {
		logger.Error("command failed", zap.Error(err))
	} else {
		fmt.Fprintln(os.Stderr, "videoscan:", err)
	}
	os.Exit(ExitFailure)
}
