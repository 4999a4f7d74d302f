package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/controller"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

const (
	actionRegister  = "register"
	actionRecognize = "recognize"
	actionStop      = "stop"

	msgModelNotFound = "Model not found. Register a face first."
	msgMissingFields = "Missing ID or Name"
	msgInvalidAction = "Invalid action"
)

// ModeController is the command surface of the controller
type ModeController interface {
	StartRegistration(ctx context.Context, id int64, name string) error
	StartRecognition(ctx context.Context) error
	Stop()
	Status() controller.Status
}

// identityID accepts a JSON number or a numeric string
type identityID int64

func (id *identityID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer, got %s", string(b))
	}
	*id = identityID(n)
	return nil
}

// ControlRequest is the body of a control command
type ControlRequest struct {
	Action string     `json:"action" validate:"required,oneof=register recognize stop"`
	ID     identityID `json:"id" validate:"required_if=Action register"`
	Name   string     `json:"name" validate:"required_if=Action register"`
}

// ControlResponse is the result of a control command
type ControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ControlHandler switches the controller between modes
type ControlHandler struct {
	ctrl ModeController
	log  *logger.Logger
}

// NewControlHandler creates a new control handler
func NewControlHandler(ctrl ModeController) *ControlHandler {
	return &ControlHandler{ctrl: ctrl, log: logger.Named("web")}
}

// Control handles POST /api/control
func (h *ControlHandler) Control(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := decodeJSON(r, &req); err != nil {
		var fe *fieldError
		switch {
		case errors.As(err, &fe) && fe.Field == "action":
			respondControl(w, http.StatusBadRequest, "error", msgInvalidAction)
		case errors.As(err, &fe):
			respondControl(w, http.StatusBadRequest, "error", msgMissingFields)
		default:
			respondControl(w, http.StatusBadRequest, "error", errInvalidRequestBody)
		}
		return
	}

	switch req.Action {
	case actionRegister:
		err := h.ctrl.StartRegistration(r.Context(), int64(req.ID), req.Name)
		if err != nil {
			h.fail(w, err)
			return
		}
		respondControl(w, http.StatusOK, "success", "Registration started")
	case actionRecognize:
		if err := h.ctrl.StartRecognition(r.Context()); err != nil {
			h.fail(w, err)
			return
		}
		respondControl(w, http.StatusOK, "success", "Recognition started")
	case actionStop:
		h.ctrl.Stop()
		respondControl(w, http.StatusOK, "success", "Stopped")
	default:
		respondControl(w, http.StatusBadRequest, "error", msgInvalidAction)
	}
}

// Mode handles GET /api/v1/mode
func (h *ControlHandler) Mode(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *ControlHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrInvalidRequest):
		respondControl(w, http.StatusBadRequest, "error", msgMissingFields)
	case errors.Is(err, vision.ErrModelNotFound):
		respondControl(w, http.StatusBadRequest, "error", msgModelNotFound)
	case errors.Is(err, attendance.ErrStorage):
		h.log.Error().Err(err).Msg("control command failed")
		respondControl(w, http.StatusInternalServerError, "error", "storage error")
	default:
		h.log.Error().Str("error", sanitizeForLog(err.Error())).Msg("control command failed")
		respondControl(w, http.StatusInternalServerError, "error", "internal error")
	}
}

func respondControl(w http.ResponseWriter, status int, result, message string) {
	respondJSON(w, status, ControlResponse{Status: result, Message: message})
}
