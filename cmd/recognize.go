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
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognize faces and mark attendance without the web server",
	Long: `Reads frames from the configured camera, recognizes enrolled faces and
records Time In / Time Out events, printing each one as it happens.
Requires a trained model (see "register" and "train"). Ctrl+C stops.`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	p := buildPipeline(cfg, store, nil)
	if err := p.ctrl.StartRecognition(ctx); err != nil {
		if errors.Is(err, vision.ErrModelNotFound) {
			return fmt.Errorf("model not found, please register a face first: %w", err)
		}
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	source, err := openCamera(cfg)
	if err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}
	defer source.Close()

	if meta, ok := p.engine.Metadata(); ok {
		fmt.Printf("Recognizing %d identities with model %s, press Ctrl+C to stop\n\n", meta.Identities, meta.BuildID)
	}

	for {
		frame, err := source.Read(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				p.ctrl.Stop()
				fmt.Println("\nRecognition stopped")
				return nil
			}
			return fmt.Errorf("camera read failed: %w", err)
		}

		_, report := p.ctrl.ProcessFrame(ctx, frame)
		for _, line := range attendanceLines(report) {
			fmt.Println(line)
		}
		if report.Mode != controller.ModeRecognizing {
			return errors.New("recognition ended unexpectedly")
		}
	}
}

// attendanceLines formats the attendance events recorded while processing a frame
func attendanceLines(report controller.FrameReport) []string {
	var lines []string
	for _, face := range report.Faces {
		if face.Attendance == nil {
			continue
		}
		msg := face.Attendance.Message()
		if msg == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[ATTENDANCE] %s for %s", msg, face.Name))
	}
	return lines
}
