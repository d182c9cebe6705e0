// Package cmd provides the CLI commands for indexhub.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/indexhub/internal/config"
	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/logging"
	"github.com/Aman-CERP/indexhub/pkg/version"
)

var (
	configPath string
	logLevel   string
	logFile    string

	cfg            *config.Config
	log            *slog.Logger
	loggingCleanup func()
)

// NewRootCmd creates the root command for the indexhub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexhub",
		Short: "Indexing middleware over an inverted-index engine",
		Long: `indexhub manages a set of named indexes: asynchronous per-index job
queues feed an exclusive writer, readers are leased per committed
generation, and facets are computed over leased searchers.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("indexhub version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default stderr)")

	cmd.PersistentPreRunE = setup
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newFacetCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration and wires logging before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile != "" {
		cfg.Logging.FilePath = logFile
	}

	log, loggingCleanup, err = logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(log)
	return nil
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// ExitCode maps a command error to the process exit code. Fatal errors,
// like a corrupt index, exit 2 so wrappers can tell unrecoverable state
// from ordinary failures.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsFatal(err):
		return 2
	default:
		return 1
	}
}
