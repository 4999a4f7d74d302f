// Package vision detects faces, recognizes them against a trained model and
// trains that model from enrolled samples.
package vision

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrModelNotFound is returned when recognition is requested before any model exists.
	ErrModelNotFound = errors.New("model not found")
	// ErrTrainingFailed is returned when no usable model could be produced.
	ErrTrainingFailed = errors.New("training failed")
	// ErrNoMatch classifies a crop the model cannot place at all. It is not a failure.
	ErrNoMatch = errors.New("no match")
)

// DefaultThreshold is the confidence below which a match is accepted.
const DefaultThreshold = 50.0

// Match is the best candidate for a face crop. Confidence is distance-like:
// lower values are better.
type Match struct {
	IdentityID int64
	Confidence float64
}

// Accepted reports whether the match is good enough under threshold
func (m Match) Accepted(threshold float64) bool {
	return m.Confidence < threshold
}

// Sample is one training input: an encoded face image tagged with its identity.
type Sample struct {
	IdentityID int64
	Data       []byte
}

// Engine is the detection, recognition and training backend.
type Engine interface {
	// DetectFaces returns the bounding boxes of all faces in frame
	DetectFaces(ctx context.Context, frame image.Image) ([]image.Rectangle, error)
	// Recognize returns the nearest identity for a single face crop
	Recognize(ctx context.Context, crop image.Image) (Match, error)
	// Train replaces the model with one built from samples
	Train(ctx context.Context, samples []Sample) error
	// HasModel reports whether a model is loaded
	HasModel() bool
	// Reload reloads the model from its persisted location
	Reload() error
}
