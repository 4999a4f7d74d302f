package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

var alice = database.Identity{ID: 7, Name: "Alice"}

func at(hour, minute, second int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, second, 0, time.UTC)
}

func newTestEngine() (*Engine, *mock.MockStore) {
	store := mock.NewMockStore()
	return NewEngine(store, WithLocation(time.UTC)), store
}

func TestMark_FirstEventOfDayIsTimeIn(t *testing.T) {
	engine, store := newTestEngine()

	outcome, err := engine.Mark(context.Background(), alice, at(9, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Kind != TimeIn {
		t.Errorf("expected TimeIn, got %s", outcome.Kind)
	}
	sessions := store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(sessions))
	}
	if sessions[0].Date != "2026-03-02" || sessions[0].Name != "Alice" {
		t.Errorf("unexpected session %+v", sessions[0])
	}
	if !sessions[0].LastEvent.Equal(at(9, 0, 0)) {
		t.Errorf("expected last event 09:00:00, got %v", sessions[0].LastEvent)
	}
}

func TestMark_Scenario(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	steps := []struct {
		when     time.Time
		expected OutcomeKind
		message  string
	}{
		{at(9, 0, 0), TimeIn, "Time In: 09:00:00"},
		{at(9, 0, 30), Ignored, ""},
		{at(9, 1, 30), TimeOut, "Time Out: 09:01:30"},
		{at(9, 5, 0), TimeIn, "Time In: 09:05:00"},
	}

	for _, step := range steps {
		outcome, err := engine.Mark(ctx, alice, step.when)
		if err != nil {
			t.Fatalf("mark at %v: unexpected error: %v", step.when, err)
		}
		if outcome.Kind != step.expected {
			t.Errorf("mark at %v: expected %s, got %s", step.when, step.expected, outcome.Kind)
		}
		if outcome.Message() != step.message {
			t.Errorf("mark at %v: expected message %q, got %q", step.when, step.message, outcome.Message())
		}
	}

	sessions := store.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].TimeOut == nil || !sessions[0].TimeOut.Equal(at(9, 1, 30)) {
		t.Errorf("expected first session closed at 09:01:30, got %v", sessions[0].TimeOut)
	}
	if !sessions[1].TimeIn.Equal(at(9, 5, 0)) || !sessions[1].Open() {
		t.Errorf("expected second session open since 09:05:00, got %+v", sessions[1])
	}
}

func TestMark_IgnoredLeavesStoreUntouched(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	if _, err := engine.Mark(ctx, alice, at(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := store.Sessions()

	// A burst of detections within the cooldown
	for s := 1; s < 60; s += 7 {
		outcome, err := engine.Mark(ctx, alice, at(9, 0, s))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Kind != Ignored || outcome.Reason != ReasonTooSoon {
			t.Errorf("expected Ignored(too_soon) at +%ds, got %s", s, outcome.Kind)
		}
		if outcome.Recorded() {
			t.Error("ignored outcome must not report as recorded")
		}
	}

	after := store.Sessions()
	if len(after) != len(before) {
		t.Fatalf("expected %d sessions, got %d", len(before), len(after))
	}
	if !after[0].LastEvent.Equal(before[0].LastEvent) {
		t.Errorf("last event moved from %v to %v", before[0].LastEvent, after[0].LastEvent)
	}
	if store.InsertCalls != 1 || store.CloseCalls != 0 {
		t.Errorf("expected 1 insert and 0 closes, got %d and %d", store.InsertCalls, store.CloseCalls)
	}
}

func TestMark_ExactlyCooldownIsAccepted(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	if _, err := engine.Mark(ctx, alice, at(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := engine.Mark(ctx, alice, at(9, 1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != TimeOut {
		t.Errorf("expected TimeOut at exactly the cooldown, got %s", outcome.Kind)
	}
}

func TestMark_AlternatesWhenSpacedOut(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	start := at(8, 0, 0)
	for i := range 9 {
		outcome, err := engine.Mark(ctx, alice, start.Add(time.Duration(i)*90*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := TimeIn
		if i%2 == 1 {
			expected = TimeOut
		}
		if outcome.Kind != expected {
			t.Errorf("event %d: expected %s, got %s", i, expected, outcome.Kind)
		}
	}

	sessions := store.Sessions()
	if len(sessions) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(sessions))
	}
	for i, s := range sessions[:4] {
		if s.TimeOut == nil || s.TimeOut.Before(s.TimeIn) {
			t.Errorf("session %d: expected closed session with time-out after time-in, got %+v", i, s)
		}
	}
	if !sessions[4].Open() {
		t.Error("expected last session to remain open")
	}
}

func TestMark_NewDayStartsFresh(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	if _, err := engine.Mark(ctx, alice, time.Date(2026, 3, 2, 23, 59, 50, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 20 seconds later, but a different date
	outcome, err := engine.Mark(ctx, alice, time.Date(2026, 3, 3, 0, 0, 10, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != TimeIn {
		t.Errorf("expected TimeIn on a new date, got %s", outcome.Kind)
	}
	if len(store.Sessions()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(store.Sessions()))
	}
}

func TestMark_IdentitiesAreIndependent(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()
	bob := database.Identity{ID: 8, Name: "Bob"}

	if _, err := engine.Mark(ctx, alice, at(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := engine.Mark(ctx, bob, at(9, 0, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != TimeIn {
		t.Errorf("expected TimeIn for a different identity, got %s", outcome.Kind)
	}
}

func TestMark_UsesConfiguredLocation(t *testing.T) {
	store := mock.NewMockStore()
	tz := time.FixedZone("UTC+10", 10*60*60)
	engine := NewEngine(store, WithLocation(tz))

	// 20:00 UTC on March 2 is already March 3 in UTC+10
	if _, err := engine.Mark(context.Background(), alice, time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if date := store.Sessions()[0].Date; date != "2026-03-03" {
		t.Errorf("expected date 2026-03-03, got %s", date)
	}
}

func TestMark_StorageErrors(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name   string
		prime  bool
		inject func(*mock.MockStore)
		when   time.Time
	}{
		{"lookup fails", false, func(s *mock.MockStore) { s.GetLatestError = boom }, at(9, 0, 0)},
		{"insert fails", false, func(s *mock.MockStore) { s.InsertError = boom }, at(9, 0, 0)},
		{"close fails", true, func(s *mock.MockStore) { s.CloseError = boom }, at(9, 5, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store := newTestEngine()
			if tt.prime {
				if _, err := engine.Mark(context.Background(), alice, at(9, 0, 0)); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			tt.inject(store)

			outcome, err := engine.Mark(context.Background(), alice, tt.when)
			if !errors.Is(err, ErrStorage) {
				t.Errorf("expected ErrStorage, got %v", err)
			}
			if !errors.Is(err, boom) {
				t.Errorf("expected wrapped cause, got %v", err)
			}
			if outcome.Recorded() {
				t.Errorf("expected no recorded outcome on error, got %s", outcome.Kind)
			}
		})
	}
}

func TestWithCooldown(t *testing.T) {
	engine := NewEngine(mock.NewMockStore(), WithCooldown(5*time.Minute))
	if engine.Cooldown() != 5*time.Minute {
		t.Errorf("expected 5m cooldown, got %v", engine.Cooldown())
	}

	engine = NewEngine(mock.NewMockStore(), WithCooldown(0))
	if engine.Cooldown() != DefaultCooldown {
		t.Errorf("expected default cooldown for zero, got %v", engine.Cooldown())
	}
}
