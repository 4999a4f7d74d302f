package registration

import (
	"errors"
	"image"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultMaxSamples is the number of samples that completes a registration
const DefaultMaxSamples = 60

// ErrSessionComplete is returned by Add once the bound has been reached
var ErrSessionComplete = errors.New("registration session complete")

// Session counts the samples captured for one identity. Add is called only
// from the frame loop; Count may be read from anywhere.
type Session struct {
	id         string
	identityID int64
	max        int
	count      atomic.Int64
	store      *SampleStore
}

// NewSession starts a fresh session with a zero counter
func NewSession(store *SampleStore, identityID int64, maxSamples int) *Session {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Session{
		id:         uuid.NewString(),
		identityID: identityID,
		max:        maxSamples,
		store:      store,
	}
}

// Add persists crop as the next sample
func (s *Session) Add(crop image.Image) error {
	n := s.count.Load()
	if n >= int64(s.max) {
		return ErrSessionComplete
	}
	if _, err := s.store.Save(s.identityID, s.id, int(n)+1, crop); err != nil {
		return err
	}
	s.count.Store(n + 1)
	return nil
}

// ID returns the session token used in sample file names
func (s *Session) ID() string { return s.id }

// IdentityID returns the identity being enrolled
func (s *Session) IdentityID() int64 { return s.identityID }

// Count returns the number of samples captured so far
func (s *Session) Count() int { return int(s.count.Load()) }

// Max returns the sample bound
func (s *Session) Max() int { return s.max }

// Complete reports whether the bound has been reached
func (s *Session) Complete() bool { return s.Count() >= s.max }
