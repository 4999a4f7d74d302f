package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const sessionColumns = "id, identity_id, name, date, time_in, time_out, last_event"

// Store is a MariaDB-backed database.Store
type Store struct {
	pool *Pool
}

// NewStore wraps a pool whose schema has been ensured
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the underlying pool
func (s *Store) Close() error {
	return s.pool.Close()
}

// UpsertIdentity creates the identity or replaces its name
func (s *Store) UpsertIdentity(ctx context.Context, id int64, name string) error {
	query := `INSERT INTO identities (id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), updated_at = CURRENT_TIMESTAMP(6)`
	if _, err := s.pool.db.ExecContext(ctx, query, id, name); err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found
func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var identity database.Identity
	err := s.pool.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM identities WHERE id = ?", id).
		Scan(&identity.ID, &identity.Name, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// ListIdentities returns all identities ordered by ID
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.pool.db.QueryContext(ctx, "SELECT id, name, created_at FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var identity database.Identity
		if err := rows.Scan(&identity.ID, &identity.Name, &identity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*database.AttendanceSession, error) {
	var (
		sess    database.AttendanceSession
		date    time.Time
		timeOut sql.NullTime
	)
	if err := row.Scan(&sess.ID, &sess.IdentityID, &sess.Name, &date, &sess.TimeIn, &timeOut, &sess.LastEvent); err != nil {
		return nil, err
	}
	sess.Date = date.Format(database.DateLayout)
	if timeOut.Valid {
		t := timeOut.Time
		sess.TimeOut = &t
	}
	return &sess, nil
}

// GetLatestSession returns the most recent session for an identity on a date, or nil
func (s *Store) GetLatestSession(ctx context.Context, identityID int64, date string) (*database.AttendanceSession, error) {
	query := "SELECT " + sessionColumns + " FROM attendance_sessions WHERE identity_id = ? AND date = ? ORDER BY id DESC LIMIT 1"
	sess, err := scanSession(s.pool.db.QueryRowContext(ctx, query, identityID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest session: %w", err)
	}
	return sess, nil
}

// InsertSession opens a new session
func (s *Store) InsertSession(ctx context.Context, identityID int64, name, date string, timeIn time.Time) (*database.AttendanceSession, error) {
	timeIn = timeIn.UTC()
	result, err := s.pool.db.ExecContext(ctx,
		"INSERT INTO attendance_sessions (identity_id, name, date, time_in, last_event) VALUES (?, ?, ?, ?, ?)",
		identityID, name, date, timeIn, timeIn)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting inserted id: %w", err)
	}
	return &database.AttendanceSession{
		ID:         id,
		IdentityID: identityID,
		Name:       name,
		Date:       date,
		TimeIn:     timeIn,
		LastEvent:  timeIn,
	}, nil
}

// CloseSession sets time-out and last event on an open session
func (s *Store) CloseSession(ctx context.Context, sessionID int64, timeOut time.Time) error {
	timeOut = timeOut.UTC()
	result, err := s.pool.db.ExecContext(ctx,
		"UPDATE attendance_sessions SET time_out = ?, last_event = ? WHERE id = ? AND time_out IS NULL",
		timeOut, timeOut, sessionID)
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
func (s *Store) ListRecent(ctx context.Context, limit int) ([]database.AttendanceSession, error) {
	if limit <= 0 {
		limit = database.DefaultRecentLimit
	}
	query := "SELECT " + sessionColumns + " FROM attendance_sessions ORDER BY date DESC, time_in DESC LIMIT ?"
	return s.list(ctx, query, limit)
}

// ListForIdentity returns all sessions of one identity, most recent first
func (s *Store) ListForIdentity(ctx context.Context, identityID int64) ([]database.AttendanceSession, error) {
	query := "SELECT " + sessionColumns + " FROM attendance_sessions WHERE identity_id = ? ORDER BY date DESC, time_in DESC"
	return s.list(ctx, query, identityID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]database.AttendanceSession, error) {
	rows, err := s.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.AttendanceSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

var _ database.Store = (*Store)(nil)
