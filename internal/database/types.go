package database

import (
	"time"
)

// Identity represents an enrolled person
type Identity struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// AttendanceSession is one time-in/time-out cycle for an identity on a date.
// TimeOut is nil while the session is open.
type AttendanceSession struct {
	ID         int64
	IdentityID int64
	Name       string
	Date       string // YYYY-MM-DD in the attendance timezone
	TimeIn     time.Time
	TimeOut    *time.Time
	LastEvent  time.Time
}

// Open reports whether the session has not been closed yet
func (s *AttendanceSession) Open() bool {
	return s.TimeOut == nil
}
