package controller

import (
	"image"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// FaceOutcome classifies what happened to one detected face
type FaceOutcome int

const (
	// Captured means the face was stored as a registration sample
	Captured FaceOutcome = iota + 1
	// Matched means the face was recognized under the threshold
	Matched
	// Unknown means the face did not match any identity closely enough
	Unknown
	// DetectionError means recognition failed for this face
	DetectionError
)

func (o FaceOutcome) String() string {
	switch o {
	case Captured:
		return "captured"
	case Matched:
		return "matched"
	case Unknown:
		return "unknown"
	case DetectionError:
		return "error"
	default:
		return "invalid"
	}
}

// FaceResult is the per-face outcome of one frame
type FaceResult struct {
	Box        image.Rectangle
	Outcome    FaceOutcome
	IdentityID int64
	Name       string
	Confidence float64
	Attendance *attendance.Outcome // nil unless marking was attempted and succeeded
	Err        error               // recognition or storage failure for this face
}

// FrameReport summarizes the processing of one frame
type FrameReport struct {
	Mode     string
	Faces    []FaceResult
	Captured int // registration progress after this frame
	Trained  bool
	TrainErr error
}
