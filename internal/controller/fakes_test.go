package controller

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

type recognition struct {
	match vision.Match
	err   error
}

// fakeVision is a scripted vision.Engine
type fakeVision struct {
	mu sync.Mutex

	faces     []image.Rectangle
	detectErr error

	// results are returned in order; the last one repeats
	results      []recognition
	recognizeIdx int

	hasModel     bool
	trainErr     error
	trainCalls   int
	trainSamples int
	onTrain      func()
}

func (f *fakeVision) DetectFaces(_ context.Context, _ image.Image) ([]image.Rectangle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return append([]image.Rectangle(nil), f.faces...), nil
}

func (f *fakeVision) Recognize(_ context.Context, _ image.Image) (vision.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return vision.Match{}, vision.ErrNoMatch
	}
	r := f.results[min(f.recognizeIdx, len(f.results)-1)]
	f.recognizeIdx++
	return r.match, r.err
}

func (f *fakeVision) Train(_ context.Context, samples []vision.Sample) error {
	f.mu.Lock()
	f.trainCalls++
	f.trainSamples = len(samples)
	hook := f.onTrain
	err := f.trainErr
	if err == nil {
		f.hasModel = true
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeVision) HasModel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasModel
}

func (f *fakeVision) Reload() error {
	if !f.HasModel() {
		return vision.ErrModelNotFound
	}
	return nil
}

func (f *fakeVision) setFaces(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces = nil
	for i := range n {
		x := 5 + i*30
		f.faces = append(f.faces, image.Rect(x, 10, x+25, 35))
	}
}

// fakeSource yields a fixed number of frames, then fails
type fakeSource struct {
	mu      sync.Mutex
	frames  int
	reads   int
	closed  bool
	readErr error
}

func (s *fakeSource) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.reads >= s.frames {
		return nil, s.readErr
	}
	s.reads++
	return testFrame(), nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type collectingSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *collectingSink) Publish(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// flakyStore fails InsertSession for one identity
type flakyStore struct {
	*mock.MockStore
	failFor int64
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) InsertSession(ctx context.Context, identityID int64, name, date string, timeIn time.Time) (*database.AttendanceSession, error) {
	if identityID == s.failFor {
		return nil, errDiskFull
	}
	return s.MockStore.InsertSession(ctx, identityID, name, date, timeIn)
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	for y := range 60 {
		for x := range 120 {
			img.Set(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	return img
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	ctrl    *Controller
	vision  *fakeVision
	store   *mock.MockStore
	samples *registration.SampleStore
	clock   *testClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithStore(t, mock.NewMockStore(), nil, opts...)
}

func newHarnessWithStore(t *testing.T, store *mock.MockStore, sessions database.SessionWriter, opts ...Option) *harness {
	t.Helper()
	if sessions == nil {
		sessions = store
	}
	fv := &fakeVision{}
	samples := registration.NewSampleStore(t.TempDir())
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	engine := attendance.NewEngine(sessions, attendance.WithLocation(time.UTC))

	opts = append([]Option{WithClock(clock.Now), WithLogger(logger.Nop())}, opts...)
	return &harness{
		ctrl:    New(fv, store, samples, engine, opts...),
		vision:  fv,
		store:   store,
		samples: samples,
		clock:   clock,
	}
}
