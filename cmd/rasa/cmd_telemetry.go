package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rasa/internal/telemetry"
)

func newTelemetryCmd() *cobra.Command {
	telemetryCmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Configuration of Rasa Open Source telemetry reporting",
		Long: `Shows whether anonymous usage telemetry is reported for this installation.

Use the enable and disable subcommands to change it. RASA_TELEMETRY_ENABLED
overrides the stored decision for a single run.`,
		Args: cobra.NoArgs,
		RunE: runTelemetryStatus,
	}

	telemetryCmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Enable telemetry reporting",
		Args:  cobra.NoArgs,
		RunE:  runTelemetryEnable,
	})
	telemetryCmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable telemetry reporting",
		Args:  cobra.NoArgs,
		RunE:  runTelemetryDisable,
	})
	return telemetryCmd
}

func clientFromCmd(cmd *cobra.Command) (*telemetry.Client, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("telemetry is not initialized")
	}
	client := telemetry.FromContext(ctx)
	if client == nil {
		return nil, errors.New("telemetry is not initialized")
	}
	return client, nil
}

func runTelemetryStatus(cmd *cobra.Command, args []string) error {
	client, err := clientFromCmd(cmd)
	if err != nil {
		return err
	}

	if client.Enabled() {
		fmt.Println("Telemetry reporting is currently enabled for this installation.")
	} else {
		fmt.Println("Telemetry reporting is currently disabled for this installation.")
	}
	if client.Settings().TelemetryEnabled != nil {
		fmt.Println("The decision is forced by RASA_TELEMETRY_ENABLED for this run.")
	}
	return nil
}

func runTelemetryEnable(cmd *cobra.Command, args []string) error {
	client, err := clientFromCmd(cmd)
	if err != nil {
		return err
	}

	if err := client.Toggle(true); err != nil {
		return err
	}
	fmt.Printf("Your decision has been stored into %s.\n", client.Settings().Store().Path())
	return nil
}

func runTelemetryDisable(cmd *cobra.Command, args []string) error {
	client, err := clientFromCmd(cmd)
	if err != nil {
		return err
	}

	// Reported while still enabled; the toggle below would suppress it.
	client.TrackTelemetryDisabled()
	ctx, cancel := context.WithTimeout(cmd.Context(), flushTimeout)
	defer cancel()
	if err := client.Flush(ctx); err != nil {
		logger.Debug("Gave up waiting for telemetry events", zap.Error(err))
	}

	if err := client.Toggle(false); err != nil {
		return err
	}
	fmt.Printf("Your decision has been stored into %s.\n", client.Settings().Store().Path())
	return nil
}
