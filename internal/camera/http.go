package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/logger"
)

// HTTPSource reads frames from a network camera. A multipart/x-mixed-replace
// response is consumed as a continuous MJPEG stream; any other image response
// is treated as a snapshot endpoint and fetched once per Read.
type HTTPSource struct {
	url    string
	client *http.Client
	log    *logger.Logger

	mu     sync.Mutex
	body   io.ReadCloser
	parts  *multipart.Reader
	closed bool
}

// NewHTTPSource creates a source for url. No connection is made until the first Read.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{url: url, client: &http.Client{}, log: logger.Named("camera")}
}

// Read returns the next frame. Frames that fail to decode are skipped with a
// warning; only a long run of them makes the camera unavailable.
func (s *HTTPSource) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: source closed", ErrCameraUnavailable)
	}

	for skipped := 0; ; skipped++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := s.next(ctx)
		if !errors.Is(err, errBadFrame) {
			return img, err
		}
		if skipped >= maxSkippedFrames {
			return nil, unavailable(fmt.Errorf("%d frames in a row: %w", skipped+1, err))
		}
		s.log.Warn().Err(err).Str("url", s.url).Msg("skipping frame")
	}
}

func (s *HTTPSource) next(ctx context.Context) (image.Image, error) {
	if s.parts == nil {
		img, err := s.connect(ctx)
		if err != nil || img != nil {
			return img, err
		}
	}

	part, err := s.parts.NextPart()
	if err != nil {
		s.reset()
		return nil, unavailable(fmt.Errorf("reading stream: %w", err))
	}
	defer part.Close()

	img, err := jpeg.Decode(bufio.NewReader(part))
	if err != nil {
		return nil, badFrame(fmt.Errorf("decoding frame: %w", err))
	}
	return img, nil
}

// connect opens the stream. For snapshot endpoints it returns the decoded image directly.
func (s *HTTPSource) connect(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, unavailable(fmt.Errorf("creating request: %w", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, unavailable(fmt.Errorf("camera responded with status %d", resp.StatusCode))
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		s.body = resp.Body
		s.parts = multipart.NewReader(resp.Body, params["boundary"])
		return nil, nil
	}

	defer resp.Body.Close()
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, badFrame(fmt.Errorf("decoding snapshot: %w", err))
	}
	return img, nil
}

func (s *HTTPSource) reset() {
	if s.body != nil {
		_ = s.body.Close()
	}
	s.body = nil
	s.parts = nil
}

// Close closes the stream
func (s *HTTPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.reset()
	return nil
}
