package controller

import (
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/registration"
)

// Mode is the active operating mode. Its only implementations are Idle,
// Registering and Recognizing.
type Mode interface {
	isMode()
}

// Idle shows the live feed without processing faces.
type Idle struct{}

// Registering captures samples for Identity until Session is complete.
type Registering struct {
	Identity database.Identity
	Session  *registration.Session
}

// Recognizing matches faces against the model and marks attendance.
type Recognizing struct{}

func (Idle) isMode()        {}
func (Registering) isMode() {}
func (Recognizing) isMode() {}

const (
	ModeIdle        = "idle"
	ModeRegistering = "registering"
	ModeRecognizing = "recognizing"
)

// ModeName returns the wire name of m
func ModeName(m Mode) string {
	switch m.(type) {
	case Idle:
		return ModeIdle
	case Registering:
		return ModeRegistering
	case Recognizing:
		return ModeRecognizing
	default:
		return ModeIdle
	}
}
