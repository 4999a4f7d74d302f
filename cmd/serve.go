package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/controller"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/framesink"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camera loop and the web server",
	Long: `Start the Face Attendance web server.
The camera loop runs in the background, the annotated feed is served at
/video_feed and the mode is switched through POST /api/control.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// resolveServeHostPort applies the command line overrides on top of the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

// pipeline bundles everything the frame loop needs.
type pipeline struct {
	store   database.Store
	engine  *vision.EmbeddingEngine
	samples *registration.SampleStore
	ctrl    *controller.Controller
}

// buildPipeline wires the vision engine, the sample store and the attendance engine into a controller.
func buildPipeline(cfg *config.Config, store database.Store, m *metrics.Metrics) *pipeline {
	engine := vision.NewEmbeddingEngine(vision.NewEmbeddingClient(cfg.Embedding.URL), cfg.Model.Path)
	if meta, ok := engine.Metadata(); ok {
		fmt.Printf("Loaded recognition model %s (%d samples, %d identities)\n", meta.BuildID, meta.SampleCount, meta.Identities)
	} else {
		fmt.Printf("No recognition model at %s yet, register a face first\n", cfg.Model.Path)
	}

	samples := registration.NewSampleStore(cfg.Registration.SamplesDir)
	att := attendance.NewEngine(store,
		attendance.WithCooldown(cfg.Attendance.Cooldown),
		attendance.WithLocation(cfg.Attendance.Location()),
	)

	ctrl := controller.New(engine, store, samples, att,
		controller.WithThreshold(cfg.Recognition.Threshold),
		controller.WithMaxSamples(cfg.Registration.MaxSamples),
		controller.WithMetrics(m),
	)
	return &pipeline{store: store, engine: engine, samples: samples, ctrl: ctrl}
}

func openCamera(cfg *config.Config) (camera.Source, error) {
	return camera.Open(camera.Options{
		URL:  cfg.Camera.URL,
		Dir:  cfg.Camera.Dir,
		FPS:  cfg.Camera.FPS,
		Loop: true,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)
	log := logger.Named("serve")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	p := buildPipeline(cfg, store, m)

	source, err := openCamera(cfg)
	if err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}

	sink := framesink.New()
	m.WatchViewers(sink.Viewers)

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- p.ctrl.Run(ctx, source, sink)
	}()

	server := web.NewServer(cfg, web.Deps{
		Controller: p.ctrl,
		Store:      store,
		Frames:     sink,
		Gatherer:   registry,
	})

	// a camera failure ends the loop and takes the server down with it
	var loopErr error
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
			loopErr = <-loopDone
		case loopErr = <-loopDone:
			log.Error().Err(loopErr).Msg("frame loop stopped")
		}
		fmt.Println("\nShutting down...")
		sink.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		cancel()
		<-shutdownDone
		return fmt.Errorf("starting server: %w", err)
	}

	<-shutdownDone
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return fmt.Errorf("frame loop: %w", loopErr)
	}
	return nil
}
