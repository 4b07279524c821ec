package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rrtimeline/internal/logutil"
)

var (
	flagLogLevel  string
	flagLogFormat string

	logger *zap.Logger
)

// NewRootCmd creates the root cobra command for the rrtimeline binary.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rrtimeline",
		Short: "Live timeline of round-robin scheduling results",
		Long:  "rrtimeline renders round-robin scheduling results as an animated SVG timeline and serves it over HTTP.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logutil.New(flagLogLevel, flagLogFormat)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			logger = l
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newServeCmd(),
		newRenderCmd(),
	)

	return root
}

// loggerFor returns the command logger, rebuilt from the configuration file
// when the user did not override logging on the command line.
func loggerFor(cmd *cobra.Command, level, format string) *zap.Logger {
	flags := cmd.Flags()
	if flags.Changed("log-level") || flags.Changed("log-format") {
		return logutil.OrNop(logger)
	}
	l, err := logutil.New(level, format)
	if err != nil {
		return logutil.OrNop(logger)
	}
	return l
}
