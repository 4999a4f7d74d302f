package framesink

import (
	"context"
	"testing"
	"time"
)

func TestSink_LatestWins(t *testing.T) {
	s := New()
	if frame, seq := s.Latest(); frame != nil || seq != 0 {
		t.Fatalf("expected empty sink, got %q/%d", frame, seq)
	}

	s.Publish([]byte("a"))
	s.Publish([]byte("b"))
	s.Publish([]byte("c"))

	frame, seq := s.Latest()
	if string(frame) != "c" || seq != 3 {
		t.Errorf("expected c/3, got %q/%d", frame, seq)
	}
}

func TestSink_SlowViewerSkipsToNewest(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, f := range []string{"1", "2", "3"} {
		s.Publish([]byte(f))
	}

	var got []string
	for frame := range s.Frames(ctx) {
		got = append(got, string(frame))
		if len(got) == 1 {
			s.Publish([]byte("4"))
			s.Publish([]byte("5"))
		}
		if len(got) == 2 {
			break
		}
	}

	if len(got) != 2 || got[0] != "3" || got[1] != "5" {
		t.Errorf("expected [3 5], got %v", got)
	}
}

func TestSink_ViewerWaitsForPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan string, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		for frame := range s.Frames(ctx) {
			received <- string(frame)
			return
		}
	}()

	<-started
	// wait until the viewer is registered so the publish is not missed
	for s.Viewers() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Publish([]byte("hello"))

	select {
	case f := <-received:
		if f != "hello" {
			t.Errorf("expected hello, got %q", f)
		}
	case <-ctx.Done():
		t.Fatal("viewer never received a frame")
	}
}

func TestSink_CloseEndsViewers(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range s.Frames(context.Background()) {
		}
	}()

	for s.Viewers() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Close()
	s.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not stop after Close")
	}
	if s.Viewers() != 0 {
		t.Errorf("expected 0 viewers, got %d", s.Viewers())
	}

	s.Publish([]byte("late"))
	if frame, _ := s.Latest(); frame != nil {
		t.Errorf("expected publish after close to be dropped, got %q", frame)
	}
}

func TestSink_ContextCancelEndsViewer(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range s.Frames(ctx) {
		}
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not stop after cancel")
	}
}

func TestSink_SequenceIsRestartable(t *testing.T) {
	s := New()
	s.Publish([]byte("x"))
	seq := s.Frames(context.Background())

	for range 2 {
		for frame := range seq {
			if string(frame) != "x" {
				t.Errorf("expected x, got %q", frame)
			}
			break
		}
	}
}
