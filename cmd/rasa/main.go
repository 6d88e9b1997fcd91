package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rasa/internal/config"
	"rasa/internal/errorreporting"
	"rasa/internal/telemetry"
	"rasa/internal/version"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger

	// Set up by PersistentPreRunE, released by shutdown.
	telemetryClient *telemetry.Client
	errorReporting  bool
)

// flushTimeout bounds the wait for pending telemetry before exit.
const flushTimeout = telemetry.SegmentRequestTimeout

// newRootCmd builds the command tree. Flags bind to package state, so build a
// fresh tree for every execution.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rasa",
		Short: "Rasa Open Source command line interface",
		Long: `Rasa Open Source command line interface.

Trains assistants from the project's config, domain and training data files
and manages the anonymous usage telemetry of this installation.

Run without arguments to print this help.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logger
			logConfig := zap.NewProductionConfig()
			if verbose {
				logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = logConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			initializeTelemetry(cmd)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}
	rootCmd.SetVersionTemplate(version.Current().String())

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newTelemetryCmd())
	return rootCmd
}

// initializeTelemetry decides whether this run reports usage and, if so,
// turns on crash reporting. The client is attached to the command context.
func initializeTelemetry(cmd *cobra.Command) {
	settings := config.LoadSettings()
	telemetryClient = telemetry.New(telemetry.Options{
		Settings: settings,
		Logger:   logger,
	})
	enabled := telemetryClient.Initialize()
	logger.Debug("Telemetry initialized",
		zap.Stringer("state", telemetryClient.State()),
		zap.Bool("ci", settings.InCI))

	if enabled {
		reporting, err := errorreporting.Init(errorreporting.Options{
			DSN:         telemetry.ExceptionWriteKey(settings),
			TelemetryID: telemetryClient.TelemetryID(),
			Version:     version.Version,
			Logger:      logger,
		})
		if err != nil {
			logger.Debug("Error reporting unavailable", zap.Error(err))
		}
		errorReporting = reporting
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(telemetry.NewContext(ctx, telemetryClient))
}

// shutdown flushes pending events and reports. Safe to call more than once.
func shutdown() {
	if telemetryClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := telemetryClient.Close(ctx); err != nil && logger != nil {
			logger.Debug("Gave up waiting for telemetry events", zap.Error(err))
		}
		cancel()
		telemetryClient = nil
	}
	if errorReporting {
		errorreporting.Flush(errorreporting.DefaultFlushTimeout)
		errorReporting = false
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// execute runs the command tree. A panic is sent to the crash reporter
// before it continues unwinding.
func execute(rootCmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if errorReporting {
				errorreporting.CapturePanic(r, errorreporting.DefaultFlushTimeout)
			}
			shutdown()
			panic(r)
		}
		shutdown()
	}()

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func main() {
	if err := execute(newRootCmd(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
