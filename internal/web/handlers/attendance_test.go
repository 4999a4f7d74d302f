package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func seededStore(t *testing.T) *mock.MockStore {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMockStore()
	_ = store.UpsertIdentity(ctx, 7, "Alice")
	_ = store.UpsertIdentity(ctx, 8, "José Álvarez")

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s, _ := store.InsertSession(ctx, 7, "Alice", "2026-03-02", day)
	_ = store.CloseSession(ctx, s.ID, day.Add(8*time.Hour))
	_, _ = store.InsertSession(ctx, 8, "José Álvarez", "2026-03-02", day.Add(15*time.Minute))
	_, _ = store.InsertSession(ctx, 7, "Alice", "2026-03-03", day.Add(24*time.Hour))
	return store
}

func TestLogs_ReturnsRecentFirst(t *testing.T) {
	h := NewAttendanceHandler(seededStore(t), time.UTC)

	req := httptest.NewRequest("GET", "/api/logs", nil)
	recorder := httptest.NewRecorder()
	h.Logs(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var logs []LogEntry
	if err := json.Unmarshal(recorder.Body.Bytes(), &logs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(logs))
	}
	if logs[0].Date != "2026-03-03" {
		t.Errorf("expected newest date first, got %s", logs[0].Date)
	}
	if logs[1].Name != "José Álvarez" || logs[1].TimeOut != nil {
		t.Errorf("expected open session for José, got %+v", logs[1])
	}
	if logs[2].TimeIn != "09:00:00" || logs[2].TimeOut == nil || *logs[2].TimeOut != "17:00:00" {
		t.Errorf("unexpected closed session %+v", logs[2])
	}
}

func TestLogs_Limit(t *testing.T) {
	h := NewAttendanceHandler(seededStore(t), time.UTC)

	req := httptest.NewRequest("GET", "/api/v1/logs?limit=1", nil)
	recorder := httptest.NewRecorder()
	h.Logs(recorder, req)

	var logs []LogEntry
	if err := json.Unmarshal(recorder.Body.Bytes(), &logs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 entry, got %d", len(logs))
	}

	req = httptest.NewRequest("GET", "/api/v1/logs?limit=zero", nil)
	recorder = httptest.NewRecorder()
	h.Logs(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestLogs_StoreError(t *testing.T) {
	store := mock.NewMockStore()
	store.ListError = errors.New("connection refused")
	h := NewAttendanceHandler(store, time.UTC)

	recorder := httptest.NewRecorder()
	h.Logs(recorder, httptest.NewRequest("GET", "/api/logs", nil))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
}

func TestListIdentities_Filter(t *testing.T) {
	h := NewAttendanceHandler(seededStore(t), time.UTC)

	tests := []struct {
		query    string
		expected int
	}{
		{"", 2},
		{"jose", 1},
		{"ALICE", 1},
		{"bob", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/identities?q="+tt.query, nil)
			recorder := httptest.NewRecorder()
			h.ListIdentities(recorder, req)

			var identities []IdentityResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &identities); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if len(identities) != tt.expected {
				t.Errorf("expected %d identities, got %d", tt.expected, len(identities))
			}
		})
	}
}

func TestIdentityAttendance(t *testing.T) {
	h := NewAttendanceHandler(seededStore(t), time.UTC)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/identities/7/attendance", nil), map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()
	h.IdentityAttendance(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var resp IdentityAttendanceResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Name != "Alice" || len(resp.Logs) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestIdentityAttendance_Errors(t *testing.T) {
	h := NewAttendanceHandler(seededStore(t), time.UTC)

	tests := []struct {
		id           string
		expectedCode int
	}{
		{"abc", http.StatusBadRequest},
		{"0", http.StatusBadRequest},
		{"99", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/identities/"+tt.id+"/attendance", nil), map[string]string{"id": tt.id})
			recorder := httptest.NewRecorder()
			h.IdentityAttendance(recorder, req)

			if recorder.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, recorder.Code)
			}
		})
	}
}
