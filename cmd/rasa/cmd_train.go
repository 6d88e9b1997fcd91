package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rasa/internal/errorreporting"
	"rasa/internal/importer"
	"rasa/internal/telemetry"
	"rasa/internal/version"
)

var (
	trainConfig string
	trainDomain string
	trainData   []string
	trainOut    string
)

// Trainer turns loaded training data into a model. The manifest is written
// once it returns nil.
type Trainer func(ctx context.Context, data *importer.TrainingData) error

// trainModel is the training step. It only honors cancellation; the model
// itself is the manifest.
var trainModel Trainer = func(ctx context.Context, _ *importer.TrainingData) error {
	return ctx.Err()
}

// modelManifest is the file written into the output directory.
type modelManifest struct {
	Version     string           `json:"version"`
	TrainedAt   time.Time        `json:"trained_at"`
	Fingerprint string           `json:"fingerprint"`
	Summary     importer.Summary `json:"summary"`
}

func newTrainCmd() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Trains a Rasa model using your NLU data and stories",
		Long: `Loads the model configuration, the domain and the training data, trains a
model and stores it in the output directory.

Example:
  rasa train --config config.yml --domain domain.yml --data data --out models`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}

	trainCmd.Flags().StringVarP(&trainConfig, "config", "c", importer.DefaultConfigPath, "The policy and NLU pipeline configuration of your bot")
	trainCmd.Flags().StringVarP(&trainDomain, "domain", "d", importer.DefaultDomainPath, "Domain specification")
	trainCmd.Flags().StringSliceVar(&trainData, "data", []string{importer.DefaultDataPath}, "Paths to the training data files or directories")
	trainCmd.Flags().StringVar(&trainOut, "out", "models", "Directory where your models should be stored")
	return trainCmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := importer.Load(trainConfig, trainDomain, trainData)
	if err != nil {
		return fmt.Errorf("failed to load training data: %w", err)
	}
	logger.Info("Training data loaded",
		zap.String("fingerprint", data.Fingerprint),
		zap.Int("intent_examples", data.IntentExamples))

	var modelPath string
	client := telemetry.FromContext(ctx)
	err = client.TrackModelTraining(ctx, data, "rasa", func(ctx context.Context) error {
		if err := trainModel(ctx, data); err != nil {
			return err
		}
		var err error
		modelPath, err = writeModelManifest(trainOut, data, time.Now())
		return err
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			errorreporting.CaptureError(err)
		}
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Your Rasa model is trained and saved at '%s'.\n", modelPath)
	return nil
}

// writeModelManifest stores the manifest as <dir>/<timestamp>.json.
func writeModelManifest(dir string, data *importer.TrainingData, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	manifest := modelManifest{
		Version:     version.Version,
		TrainedAt:   now.UTC(),
		Fingerprint: data.Fingerprint,
		Summary:     data.Summary(),
	}
	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal model manifest: %w", err)
	}

	path := filepath.Join(dir, now.Format("20060102-150405")+".json")
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write model manifest: %w", err)
	}
	return path, nil
}
