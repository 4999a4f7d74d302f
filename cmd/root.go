package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Camera based attendance tracking with face recognition",
	Long: `Face Attendance watches a camera feed, enrolls people from captured face
samples and records daily Time In / Time Out sessions for recognized faces.
The web server streams the annotated feed and exposes a control API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console or json); overrides LOG_FORMAT")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := config.Load()
	opts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	logger.Init(opts)
}
