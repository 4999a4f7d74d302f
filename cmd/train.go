package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the recognition model from stored face samples",
	Long: `Reads every User.<id>.<session>.<n>.jpg sample from the samples directory,
computes face embeddings through the embedding server and writes a new
recognition model. A running server picks it up on the next "recognize" command.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("samples", "", "Samples directory (overrides SAMPLES_DIR)")
	trainCmd.Flags().String("model", "", "Model path (overrides MODEL_PATH)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "samples"); dir != "" {
		cfg.Registration.SamplesDir = dir
	}
	if path := mustGetString(cmd, "model"); path != "" {
		cfg.Model.Path = path
	}

	samples, err := registration.NewSampleStore(cfg.Registration.SamplesDir).LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples found in %s", cfg.Registration.SamplesDir)
	}

	fmt.Printf("Samples: %d from %s\n\n", len(samples), cfg.Registration.SamplesDir)

	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	engine := vision.NewEmbeddingEngine(vision.NewEmbeddingClient(cfg.Embedding.URL), cfg.Model.Path)
	err = engine.TrainWithProgress(context.Background(), samples, func(done int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	meta, _ := engine.Metadata()
	fmt.Printf("Model %s written to %s\n", meta.BuildID, cfg.Model.Path)
	fmt.Printf("  Samples:    %d\n", meta.SampleCount)
	fmt.Printf("  Identities: %d\n", meta.Identities)
	return nil
}
