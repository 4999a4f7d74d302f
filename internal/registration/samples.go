// Package registration captures face samples for an identity being enrolled.
package registration

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

const (
	samplePrefix = "User"
	sampleExt    = ".jpg"
	// SampleMaxSide bounds the longer side of a stored sample
	SampleMaxSide = 400
)

// SampleFile identifies one stored sample
type SampleFile struct {
	IdentityID int64
	SessionID  string
	Seq        int
	Path       string
}

// SampleName returns the file name of a sample: User.<id>.<session>.<seq>.jpg
func SampleName(identityID int64, sessionID string, seq int) string {
	return fmt.Sprintf("%s.%d.%s.%d%s", samplePrefix, identityID, sessionID, seq, sampleExt)
}

// ParseSampleName parses a file name produced by SampleName
func ParseSampleName(name string) (SampleFile, bool) {
	if !strings.HasSuffix(name, sampleExt) {
		return SampleFile{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, sampleExt), ".")
	if len(parts) != 4 || parts[0] != samplePrefix || parts[2] == "" {
		return SampleFile{}, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return SampleFile{}, false
	}
	seq, err := strconv.Atoi(parts[3])
	if err != nil || seq <= 0 {
		return SampleFile{}, false
	}
	return SampleFile{IdentityID: id, SessionID: parts[2], Seq: seq}, true
}

// SampleStore keeps samples as grayscale JPEG files in one directory
type SampleStore struct {
	dir string
	log *logger.Logger
}

// NewSampleStore creates a store rooted at dir. The directory is created on first save.
func NewSampleStore(dir string) *SampleStore {
	return &SampleStore{dir: dir, log: logger.Named("registration")}
}

// Dir returns the samples directory
func (s *SampleStore) Dir() string {
	return s.dir
}

// Save stores crop as sample seq of the given session
func (s *SampleStore) Save(identityID int64, sessionID string, seq int, crop image.Image) (string, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create samples directory: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, vision.Grayscale(crop, SampleMaxSide), &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}

	path := filepath.Join(s.dir, SampleName(identityID, sessionID, seq))
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write sample: %w", err)
	}
	return path, nil
}

// List returns every parsable sample file, ordered by identity, session and sequence
func (s *SampleStore) List() ([]SampleFile, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read samples directory: %w", err)
	}

	var files []SampleFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, ok := ParseSampleName(entry.Name())
		if !ok {
			continue
		}
		f.Path = filepath.Join(s.dir, entry.Name())
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.IdentityID != b.IdentityID {
			return a.IdentityID < b.IdentityID
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.Seq < b.Seq
	})
	return files, nil
}

// LoadAll returns every sample of every identity as training input.
// Files that cannot be read or decoded are skipped.
func (s *SampleStore) LoadAll() ([]vision.Sample, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	samples := make([]vision.Sample, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path) //nolint:gosec // path is from the samples directory
		if err != nil {
			s.log.Warn().Err(err).Str("file", f.Path).Msg("skipping unreadable sample")
			continue
		}
		if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
			s.log.Warn().Err(err).Str("file", f.Path).Msg("skipping undecodable sample")
			continue
		}
		samples = append(samples, vision.Sample{IdentityID: f.IdentityID, Data: data})
	}
	return samples, nil
}
