package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const sessionColumns = "id, identity_id, name, date, time_in, time_out, last_event"

// SessionRepository provides PostgreSQL-backed attendance session storage
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*database.AttendanceSession, error) {
	var (
		s       database.AttendanceSession
		date    time.Time
		timeOut sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.IdentityID, &s.Name, &date, &s.TimeIn, &timeOut, &s.LastEvent); err != nil {
		return nil, err
	}
	s.Date = date.Format(database.DateLayout)
	if timeOut.Valid {
		t := timeOut.Time
		s.TimeOut = &t
	}
	return &s, nil
}

// GetLatestSession returns the most recent session for an identity on a date, or nil
func (r *SessionRepository) GetLatestSession(ctx context.Context, identityID int64, date string) (*database.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE identity_id = $1 AND date = $2
		ORDER BY id DESC
		LIMIT 1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, identityID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest session: %w", err)
	}
	return s, nil
}

// InsertSession opens a new session
func (r *SessionRepository) InsertSession(ctx context.Context, identityID int64, name, date string, timeIn time.Time) (*database.AttendanceSession, error) {
	query := `
		INSERT INTO attendance_sessions (identity_id, name, date, time_in, last_event)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + sessionColumns

	s, err := scanSession(r.pool.QueryRow(ctx, query, identityID, name, date, timeIn))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// CloseSession sets time-out and last event on an open session
func (r *SessionRepository) CloseSession(ctx context.Context, sessionID int64, timeOut time.Time) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE attendance_sessions SET time_out = $2, last_event = $2 WHERE id = $1 AND time_out IS NULL",
		sessionID, timeOut)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("close session %d: %w", sessionID, database.ErrSessionNotOpen)
	}
	return nil
}

// ListRecent returns up to limit sessions, most recent first
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]database.AttendanceSession, error) {
	if limit <= 0 {
		limit = database.DefaultRecentLimit
	}
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		ORDER BY date DESC, time_in DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

// ListForIdentity returns all sessions of one identity, most recent first
func (r *SessionRepository) ListForIdentity(ctx context.Context, identityID int64) ([]database.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE identity_id = $1
		ORDER BY date DESC, time_in DESC`
	return r.list(ctx, query, identityID)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]database.AttendanceSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.AttendanceSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
