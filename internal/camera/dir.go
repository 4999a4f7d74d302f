package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/logger"
)

var errEmptyDir = errors.New("no images found")

// DirSource replays still images from a directory at a fixed rate.
// It stands in for a physical camera in demos and tests.
type DirSource struct {
	files  []string
	next   int
	loop   bool
	ticker *time.Ticker
	closed bool
	log    *logger.Logger
}

// NewDirSource lists the JPEG and PNG files of dir in name order
func NewDirSource(dir string, fps int, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, unavailable(err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, unavailable(fmt.Errorf("%s: %w", dir, errEmptyDir))
	}
	sort.Strings(files)

	if fps <= 0 {
		fps = DefaultFPS
	}
	return &DirSource{
		files:  files,
		loop:   loop,
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
		log:    logger.Named("camera"),
	}, nil
}

// Read waits for the next tick and returns the next image. Files that fail
// to decode are skipped with a warning.
func (s *DirSource) Read(ctx context.Context) (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: source closed", ErrCameraUnavailable)
	}
	if s.next >= len(s.files) && !s.loop {
		return nil, unavailable(io.EOF)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}

	for skipped := 0; ; skipped++ {
		if s.next >= len(s.files) {
			if !s.loop {
				return nil, unavailable(io.EOF)
			}
			s.next = 0
		}
		path := s.files[s.next]
		s.next++

		img, err := decodeFile(path)
		if !errors.Is(err, errBadFrame) {
			return img, err
		}
		if skipped >= maxSkippedFrames {
			return nil, unavailable(fmt.Errorf("%d files in a row: %w", skipped+1, err))
		}
		s.log.Warn().Err(err).Msg("skipping file")
	}
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path is from the configured directory
	if err != nil {
		return nil, unavailable(err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, badFrame(fmt.Errorf("decoding %s: %w", path, err))
	}
	return img, nil
}

// Close stops the pacing ticker
func (s *DirSource) Close() error {
	if !s.closed {
		s.closed = true
		s.ticker.Stop()
	}
	return nil
}
