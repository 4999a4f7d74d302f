package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the non-secret part of the configuration
type ConfigResponse struct {
	Threshold       float64 `json:"threshold"`
	MaxSamples      int     `json:"max_samples"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
	Timezone        string  `json:"timezone"`
	StoreBackend    string  `json:"store_backend"`
	CameraSource    string  `json:"camera_source"`
}

// Get returns the active configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	source := "none"
	switch {
	case h.config.Camera.Dir != "":
		source = "directory"
	case h.config.Camera.URL != "":
		source = "http"
	}

	response := ConfigResponse{
		Threshold:       h.config.Recognition.Threshold,
		MaxSamples:      h.config.Registration.MaxSamples,
		CooldownSeconds: h.config.Attendance.Cooldown.Seconds(),
		Timezone:        h.config.Attendance.Location().String(),
		StoreBackend:    h.config.Database.Backend,
		CameraSource:    source,
	}

	respondJSON(w, http.StatusOK, response)
}
