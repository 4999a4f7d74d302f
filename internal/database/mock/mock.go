// Package mock provides an in-memory implementation of database.Store for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockStore is an in-memory database.Store
type MockStore struct {
	mu         sync.RWMutex
	identities map[int64]*database.Identity
	sessions   []*database.AttendanceSession
	nextID     int64

	// Error injection
	UpsertError       error
	GetIdentityError  error
	ListIdentityError error
	GetLatestError    error
	InsertError       error
	CloseError        error
	ListError         error

	// Call counters
	InsertCalls int
	CloseCalls  int
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[int64]*database.Identity),
	}
}

// UpsertIdentity creates or renames an identity
func (m *MockStore) UpsertIdentity(ctx context.Context, id int64, name string) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[id]; ok {
		existing.Name = name
		return nil
	}
	m.identities[id] = &database.Identity{ID: id, Name: name, CreatedAt: time.Now()}
	return nil
}

// GetIdentity returns an identity or nil
func (m *MockStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

// ListIdentities returns identities ordered by ID
func (m *MockStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListIdentityError != nil {
		return nil, m.ListIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetLatestSession returns the newest session for identity and date
func (m *MockStore) GetLatestSession(ctx context.Context, identityID int64, date string) (*database.AttendanceSession, error) {
	if m.GetLatestError != nil {
		return nil, m.GetLatestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		s := m.sessions[i]
		if s.IdentityID == identityID && s.Date == date {
			return copySession(s), nil
		}
	}
	return nil, nil
}

// InsertSession opens a new session
func (m *MockStore) InsertSession(ctx context.Context, identityID int64, name, date string, timeIn time.Time) (*database.AttendanceSession, error) {
	if m.InsertError != nil {
		return nil, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	m.nextID++
	s := &database.AttendanceSession{
		ID:         m.nextID,
		IdentityID: identityID,
		Name:       name,
		Date:       date,
		TimeIn:     timeIn,
		LastEvent:  timeIn,
	}
	m.sessions = append(m.sessions, s)
	return copySession(s), nil
}

// CloseSession sets the time-out of an open session
func (m *MockStore) CloseSession(ctx context.Context, sessionID int64, timeOut time.Time) error {
	if m.CloseError != nil {
		return m.CloseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	for _, s := range m.sessions {
		if s.ID != sessionID {
			continue
		}
		if s.TimeOut != nil {
			return fmt.Errorf("close session %d: %w", sessionID, database.ErrSessionNotOpen)
		}
		t := timeOut
		s.TimeOut = &t
		s.LastEvent = timeOut
		return nil
	}
	return fmt.Errorf("close session %d: %w", sessionID, database.ErrSessionNotOpen)
}

// ListRecent returns sessions ordered by date then time-in, newest first
func (m *MockStore) ListRecent(ctx context.Context, limit int) ([]database.AttendanceSession, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	if limit <= 0 {
		limit = database.DefaultRecentLimit
	}
	all := m.sorted(func(*database.AttendanceSession) bool { return true })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListForIdentity returns all sessions of one identity, newest first
func (m *MockStore) ListForIdentity(ctx context.Context, identityID int64) ([]database.AttendanceSession, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.sorted(func(s *database.AttendanceSession) bool { return s.IdentityID == identityID }), nil
}

// Sessions returns a snapshot of every stored session in insertion order
func (m *MockStore) Sessions() []database.AttendanceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.AttendanceSession, len(m.sessions))
	for i, s := range m.sessions {
		result[i] = *copySession(s)
	}
	return result
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) sorted(keep func(*database.AttendanceSession) bool) []database.AttendanceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.AttendanceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if keep(s) {
			result = append(result, *copySession(s))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].TimeIn.After(result[j].TimeIn)
	})
	return result
}

func copySession(s *database.AttendanceSession) *database.AttendanceSession {
	cp := *s
	if s.TimeOut != nil {
		t := *s.TimeOut
		cp.TimeOut = &t
	}
	return &cp
}

var _ database.Store = (*MockStore)(nil)
