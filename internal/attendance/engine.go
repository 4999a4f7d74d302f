package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// DefaultCooldown is the minimum gap between two accepted events of one identity.
const DefaultCooldown = 60 * time.Second

// Engine decides whether an event opens a session, closes it, or is ignored.
// It is not safe for concurrent Mark calls on the same identity; the frame
// loop is its only caller.
type Engine struct {
	store    database.SessionWriter
	cooldown time.Duration
	loc      *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithLocation sets the timezone used to derive the attendance date.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine creates an engine over the given session store.
func NewEngine(store database.SessionWriter, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		cooldown: DefaultCooldown,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cooldown returns the configured cooldown.
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown
}

// Mark records an attendance event for identity at the given time.
//
// Per identity and day, accepted events alternate TimeIn, TimeOut, TimeIn, ...
// Events closer than the cooldown to the session's last event are ignored
// without touching the store.
func (e *Engine) Mark(ctx context.Context, identity database.Identity, at time.Time) (Outcome, error) {
	at = at.In(e.loc)
	date := at.Format(database.DateLayout)

	latest, err := e.store.GetLatestSession(ctx, identity.ID, date)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if latest == nil {
		return e.open(ctx, identity, date, at)
	}

	if at.Sub(latest.LastEvent) < e.cooldown {
		return Outcome{Kind: Ignored, At: at, SessionID: latest.ID, Reason: ReasonTooSoon}, nil
	}

	if !latest.Open() {
		return e.open(ctx, identity, date, at)
	}

	if err := e.store.CloseSession(ctx, latest.ID, at); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return Outcome{Kind: TimeOut, At: at, SessionID: latest.ID}, nil
}

func (e *Engine) open(ctx context.Context, identity database.Identity, date string, at time.Time) (Outcome, error) {
	s, err := e.store.InsertSession(ctx, identity.ID, identity.Name, date, at)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return Outcome{Kind: TimeIn, At: at, SessionID: s.ID}, nil
}
