// Package controller drives the camera feed through its operating modes and
// turns recognized faces into attendance events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/names"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// ErrInvalidRequest is returned for commands with missing or malformed arguments
var ErrInvalidRequest = errors.New("invalid request")

// Controller owns the mode state machine. Commands may be issued from any
// goroutine; ProcessFrame and Run belong to the single frame loop.
type Controller struct {
	vision     vision.Engine
	store      database.IdentityWriter
	samples    *registration.SampleStore
	attendance *attendance.Engine
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time

	threshold  float64
	maxSamples int

	mu   sync.Mutex
	mode Mode
	gen  uint64 // bumped on every mode change

	namesMu sync.RWMutex
	names   map[int64]string
}

// Option configures a Controller
type Option func(*Controller)

// WithThreshold sets the recognition acceptance threshold
func WithThreshold(threshold float64) Option {
	return func(c *Controller) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithMaxSamples sets the number of samples that completes a registration
func WithMaxSamples(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxSamples = n
		}
	}
}

// WithMetrics attaches Prometheus metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger overrides the component logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates a controller in Idle mode
func New(engine vision.Engine, store database.IdentityWriter, samples *registration.SampleStore, att *attendance.Engine, opts ...Option) *Controller {
	c := &Controller{
		vision:     engine,
		store:      store,
		samples:    samples,
		attendance: att,
		log:        logger.Named("controller"),
		now:        time.Now,
		threshold:  vision.DefaultThreshold,
		maxSamples: registration.DefaultMaxSamples,
		mode:       Idle{},
		names:      make(map[int64]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.SetMode(ModeIdle)
	return c
}

// StartRegistration enrolls identity id under name and starts capturing
// samples with a fresh counter. It is valid from any mode.
func (c *Controller) StartRegistration(ctx context.Context, id int64, name string) error {
	name = names.Normalize(name)
	if id <= 0 {
		return fmt.Errorf("%w: id must be a positive integer", ErrInvalidRequest)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	if err := c.store.UpsertIdentity(ctx, id, name); err != nil {
		return fmt.Errorf("%w: upsert identity %d: %w", attendance.ErrStorage, id, err)
	}
	c.cacheName(id, name)

	session := registration.NewSession(c.samples, id, c.maxSamples)
	c.setMode(Registering{
		Identity: database.Identity{ID: id, Name: name},
		Session:  session,
	})
	c.log.Info().Int64("id", id).Str("name", name).Str("session", session.ID()).Msg("registration started")
	return nil
}

// StartRecognition switches to Recognizing if a trained model exists
func (c *Controller) StartRecognition(ctx context.Context) error {
	if err := c.vision.Reload(); err != nil && !errors.Is(err, vision.ErrModelNotFound) {
		c.log.Warn().Err(err).Msg("model reload failed")
	}
	if !c.vision.HasModel() {
		return vision.ErrModelNotFound
	}

	c.warmNames(ctx)
	c.setMode(Recognizing{})
	c.log.Info().Msg("recognition started")
	return nil
}

// Stop returns to Idle. An in-progress registration is discarded without training.
func (c *Controller) Stop() {
	c.setMode(Idle{})
	c.log.Info().Msg("stopped")
}

// Mode returns the current mode
func (c *Controller) Mode() Mode {
	m, _ := c.snapshot()
	return m
}

// Status is a serializable view of the controller
type Status struct {
	Mode        string `json:"mode"`
	IdentityID  int64  `json:"identity_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Captured    int    `json:"captured,omitempty"`
	MaxSamples  int    `json:"max_samples,omitempty"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Status returns the current mode and registration progress
func (c *Controller) Status() Status {
	m, _ := c.snapshot()
	s := Status{Mode: ModeName(m), ModelLoaded: c.vision.HasModel()}
	if r, ok := m.(Registering); ok {
		s.IdentityID = r.Identity.ID
		s.Name = r.Identity.Name
		s.Captured = r.Session.Count()
		s.MaxSamples = r.Session.Max()
	}
	return s
}

// setMode replaces the mode. The gauge is updated under mu so it always
// reflects the last mode stored.
func (c *Controller) setMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.gen++
	c.metrics.SetMode(ModeName(m))
}

func (c *Controller) snapshot() (Mode, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode, c.gen
}

// finishRegistration moves to Idle unless a command changed the mode since gen
func (c *Controller) finishRegistration(gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.mode = Idle{}
	c.gen++
	c.metrics.SetMode(ModeIdle)
	c.mu.Unlock()
	return true
}

func (c *Controller) cacheName(id int64, name string) {
	c.namesMu.Lock()
	c.names[id] = name
	c.namesMu.Unlock()
}

// lookupName resolves an identity name through the cache, falling back to the store
func (c *Controller) lookupName(ctx context.Context, id int64) (string, bool, error) {
	c.namesMu.RLock()
	name, ok := c.names[id]
	c.namesMu.RUnlock()
	if ok {
		return name, true, nil
	}

	identity, err := c.store.GetIdentity(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("%w: get identity %d: %w", attendance.ErrStorage, id, err)
	}
	if identity == nil {
		return "", false, nil
	}
	c.cacheName(id, identity.Name)
	return identity.Name, true, nil
}

// warmNames reloads the name cache from the store
func (c *Controller) warmNames(ctx context.Context) {
	identities, err := c.store.ListIdentities(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load identity names")
		return
	}
	c.namesMu.Lock()
	for _, identity := range identities {
		c.names[identity.ID] = identity.Name
	}
	c.namesMu.Unlock()
}
