// Package framesink hands the latest annotated frame to any number of viewers.
//
// The sink holds a single slot that every Publish overwrites. Viewers never
// block the publisher; a slow viewer skips straight to the newest frame.
package framesink

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// Sink is a latest-frame-wins publisher
type Sink struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	changed chan struct{} // closed and replaced on every Publish
	closed  bool

	viewers atomic.Int64
}

// New creates an empty sink
func New() *Sink {
	return &Sink{changed: make(chan struct{})}
}

// Publish replaces the current frame. The sink takes ownership of frame.
func (s *Sink) Publish(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frame = frame
	s.seq++
	close(s.changed)
	s.changed = make(chan struct{})
}

// Latest returns the current frame and its sequence number (0 if none yet)
func (s *Sink) Latest() ([]byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.seq
}

// Frames returns a sequence yielding every frame newer than the last one the
// iteration saw. It ends when ctx is done, the sink is closed or the consumer
// stops. The sequence can be ranged over more than once.
func (s *Sink) Frames(ctx context.Context) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		s.viewers.Add(1)
		defer s.viewers.Add(-1)

		var seen uint64
		for {
			s.mu.Lock()
			frame, seq, changed, closed := s.frame, s.seq, s.changed, s.closed
			s.mu.Unlock()

			if seq > seen && frame != nil {
				seen = seq
				if !yield(frame) {
					return
				}
				continue
			}
			if closed {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}
}

// Viewers returns the number of active iterations
func (s *Sink) Viewers() int {
	return int(s.viewers.Load())
}

// Close ends every active iteration. Later publishes are dropped.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changed)
}
