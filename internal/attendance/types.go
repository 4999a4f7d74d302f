// Package attendance turns recognition events into time-in/time-out sessions.
package attendance

import (
	"errors"
	"time"
)

// ErrStorage marks a failure of the attendance store. When Mark returns it,
// no outcome may be assumed recorded.
var ErrStorage = errors.New("attendance storage error")

// OutcomeKind is the result class of a Mark call
type OutcomeKind int

const (
	TimeIn OutcomeKind = iota + 1
	TimeOut
	Ignored
)

func (k OutcomeKind) String() string {
	switch k {
	case TimeIn:
		return "time_in"
	case TimeOut:
		return "time_out"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// IgnoreReason explains an Ignored outcome
type IgnoreReason string

const ReasonTooSoon IgnoreReason = "too_soon"

// Outcome is the decision taken for one event
type Outcome struct {
	Kind      OutcomeKind
	At        time.Time
	SessionID int64
	Reason    IgnoreReason // set only for Ignored
}

// Recorded reports whether the outcome mutated the store
func (o Outcome) Recorded() bool {
	return o.Kind == TimeIn || o.Kind == TimeOut
}

// Message is the human-readable status, e.g. "Time In: 09:00:00".
// Empty for Ignored outcomes.
func (o Outcome) Message() string {
	switch o.Kind {
	case TimeIn:
		return "Time In: " + o.At.Format(time.TimeOnly)
	case TimeOut:
		return "Time Out: " + o.At.Format(time.TimeOnly)
	default:
		return ""
	}
}
