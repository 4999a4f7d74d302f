package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/controller"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Enroll a face from the camera without the web server",
	Long: `Captures face samples for one identity straight from the configured camera,
then trains the recognition model. Look at the camera and move your head
slightly so samples cover several angles. Ctrl+C aborts without training.`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().Int64("id", 0, "Numeric identity ID (required)")
	registerCmd.Flags().String("name", "", "Display name (required)")
	_ = registerCmd.MarkFlagRequired("id")
	_ = registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	id := mustGetInt64(cmd, "id")
	name := mustGetString(cmd, "name")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	p := buildPipeline(cfg, store, nil)
	if err := p.ctrl.StartRegistration(ctx, id, name); err != nil {
		return fmt.Errorf("failed to start registration: %w", err)
	}

	source, err := openCamera(cfg)
	if err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}
	defer source.Close()

	status := p.ctrl.Status()
	fmt.Printf("Registering %s (ID %d), samples go to %s\n\n", status.Name, status.IdentityID, p.samples.Dir())

	bar := progressbar.NewOptions(status.MaxSamples,
		progressbar.OptionSetDescription("Capturing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	for {
		frame, err := source.Read(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				p.ctrl.Stop()
				fmt.Println("\nRegistration aborted, captured samples were kept")
				return nil
			}
			return fmt.Errorf("camera read failed: %w", err)
		}

		_, report := p.ctrl.ProcessFrame(ctx, frame)
		if report.Mode == controller.ModeRegistering {
			_ = bar.Set(report.Captured)
		}

		switch {
		case report.TrainErr != nil:
			_ = bar.Finish()
			return fmt.Errorf("\ntraining failed: %w", report.TrainErr)
		case report.Trained:
			_ = bar.Finish()
			fmt.Println("\n\nTraining complete!")
			if meta, ok := p.engine.Metadata(); ok {
				fmt.Printf("Model %s: %d samples, %d identities\n", meta.BuildID, meta.SampleCount, meta.Identities)
			}
			return nil
		case report.Mode != controller.ModeRegistering:
			return errors.New("registration ended unexpectedly")
		}
	}
}
