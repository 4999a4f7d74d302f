package database

import (
	"context"
	"time"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// GetIdentity returns the identity with the given ID, or nil if not found
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// ListIdentities returns all identities ordered by ID
	ListIdentities(ctx context.Context) ([]Identity, error)
}

// IdentityWriter provides write access to identities
type IdentityWriter interface {
	IdentityReader

	// UpsertIdentity creates the identity or replaces its name (last write wins)
	UpsertIdentity(ctx context.Context, id int64, name string) error
}

// SessionReader provides read-only access to attendance sessions
type SessionReader interface {
	// GetLatestSession returns the most recent session for the identity on date, or nil
	GetLatestSession(ctx context.Context, identityID int64, date string) (*AttendanceSession, error)
	// ListRecent returns up to limit sessions, most recent first by date then time-in
	ListRecent(ctx context.Context, limit int) ([]AttendanceSession, error)
	// ListForIdentity returns every session of one identity, most recent first
	ListForIdentity(ctx context.Context, identityID int64) ([]AttendanceSession, error)
}

// SessionWriter provides write access to attendance sessions
type SessionWriter interface {
	SessionReader

	// InsertSession opens a new session with time-in (and last event) set to timeIn
	InsertSession(ctx context.Context, identityID int64, name, date string, timeIn time.Time) (*AttendanceSession, error)
	// CloseSession sets time-out and last event of an open session
	CloseSession(ctx context.Context, sessionID int64, timeOut time.Time) error
}

// Store is the full attendance store used by the service
type Store interface {
	IdentityWriter
	SessionWriter

	Close() error
}
