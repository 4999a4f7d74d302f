// Package camera provides the frame sources the recognition loop reads from.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrCameraUnavailable is returned when the camera cannot be opened or read
var ErrCameraUnavailable = errors.New("camera unavailable")

// DefaultFPS is the pacing used by sources that do not set their own rate
const DefaultFPS = 15

// maxSkippedFrames is how many undecodable frames in a row a source skips
// before it reports the camera unavailable
const maxSkippedFrames = 25

// errBadFrame marks a frame that arrived but could not be decoded
var errBadFrame = errors.New("undecodable frame")

// Source is an exclusively-owned frame source. It is not safe for concurrent use.
type Source interface {
	// Read blocks until the next frame is available
	Read(ctx context.Context) (image.Image, error)
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// Options selects and configures a source
type Options struct {
	URL  string // MJPEG stream or JPEG snapshot URL
	Dir  string // directory of still images replayed in name order
	FPS  int
	Loop bool // replay Dir forever
}

// Open returns the source described by opts. Dir takes precedence over URL.
func Open(opts Options) (Source, error) {
	switch {
	case opts.Dir != "":
		return NewDirSource(opts.Dir, opts.FPS, opts.Loop)
	case opts.URL != "":
		return NewHTTPSource(opts.URL), nil
	default:
		return nil, fmt.Errorf("%w: no camera configured (set CAMERA_URL or CAMERA_DIR)", ErrCameraUnavailable)
	}
}

func badFrame(err error) error {
	return fmt.Errorf("%w: %w", errBadFrame, err)
}

func unavailable(err error) error {
	if errors.Is(err, ErrCameraUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
}
