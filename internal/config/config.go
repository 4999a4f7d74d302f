package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Web          WebConfig          `yaml:"web"`
	Recognition  RecognitionConfig  `yaml:"recognition"`
	Registration RegistrationConfig `yaml:"registration"`
	Attendance   AttendanceConfig   `yaml:"attendance"`
	Model        ModelConfig        `yaml:"model"`
	Camera       CameraConfig       `yaml:"camera"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Database     DatabaseConfig     `yaml:"database"`
	Log          LogConfig          `yaml:"log"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RecognitionConfig struct {
	// Threshold is the single acceptance threshold for a recognition score.
	Threshold float64 `yaml:"threshold"`
}

type RegistrationConfig struct {
	MaxSamples int    `yaml:"max_samples"`
	SamplesDir string `yaml:"samples_dir"`
}

type AttendanceConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
	Timezone string        `yaml:"timezone"`
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type ModelConfig struct {
	Path string `yaml:"path"`
}

type CameraConfig struct {
	URL string `yaml:"url"` // MJPEG-over-HTTP device (IP camera, mjpg-streamer)
	Dir string `yaml:"dir"` // directory of JPEG frames replayed in a loop
	FPS int    `yaml:"fps"` // pacing for directory replay
}

type EmbeddingConfig struct {
	URL string `yaml:"url"` // defaults to http://localhost:8000
}

type DatabaseConfig struct {
	Backend      string `yaml:"backend"`        // postgres or mariadb
	URL          string `yaml:"url"`            // PostgreSQL connection URL
	MariaDBDSN   string `yaml:"mariadb_dsn"`    // MariaDB DSN (e.g., attendance:secret@tcp(mariadb:3306)/attendance?parseTime=true)
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, returning defaultVal when unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the embedded default configuration.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic(fmt.Sprintf("failed to unmarshal embedded defaults.yaml: %v", err))
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Web: WebConfig{
			Host: envString("WEB_HOST", d.Web.Host),
			Port: envInt("WEB_PORT", d.Web.Port),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("RECOGNITION_THRESHOLD", d.Recognition.Threshold),
		},
		Registration: RegistrationConfig{
			MaxSamples: envInt("REGISTRATION_MAX_SAMPLES", d.Registration.MaxSamples),
			SamplesDir: envString("SAMPLES_DIR", d.Registration.SamplesDir),
		},
		Attendance: AttendanceConfig{
			Cooldown: envDuration("ATTENDANCE_COOLDOWN", d.Attendance.Cooldown),
			Timezone: envString("ATTENDANCE_TIMEZONE", d.Attendance.Timezone),
		},
		Model: ModelConfig{
			Path: envString("MODEL_PATH", d.Model.Path),
		},
		Camera: CameraConfig{
			URL: os.Getenv("CAMERA_URL"),
			Dir: os.Getenv("CAMERA_DIR"),
			FPS: envInt("CAMERA_FPS", d.Camera.FPS),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Database: DatabaseConfig{
			Backend:      envString("STORE_BACKEND", d.Database.Backend),
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", d.Log.Level),
			Format: envString("LOG_FORMAT", d.Log.Format),
		},
	}
}
