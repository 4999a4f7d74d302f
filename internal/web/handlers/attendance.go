package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/names"
)

const maxLogLimit = 500

// AttendanceStore is the read side of the store used by the API
type AttendanceStore interface {
	database.IdentityReader
	database.SessionReader
}

// LogEntry is one attendance session as served by the API
type LogEntry struct {
	Name    string  `json:"name"`
	Date    string  `json:"date"`
	TimeIn  string  `json:"time_in"`
	TimeOut *string `json:"time_out"`
}

// IdentityResponse is one enrolled identity
type IdentityResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityAttendanceResponse is the attendance history of one identity
type IdentityAttendanceResponse struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Logs []LogEntry `json:"logs"`
}

// AttendanceHandler serves attendance logs and identities
type AttendanceHandler struct {
	store AttendanceStore
	loc   *time.Location
	log   *logger.Logger
}

// NewAttendanceHandler creates a new attendance handler. Times are rendered in loc.
func NewAttendanceHandler(store AttendanceStore, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{store: store, loc: loc, log: logger.Named("web")}
}

// Logs handles GET /api/logs
func (h *AttendanceHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := database.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLogLimit)
	}

	sessions, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list attendance")
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	respondJSON(w, http.StatusOK, h.entries(sessions))
}

// ListIdentities handles GET /api/v1/identities
func (h *AttendanceHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list identities")
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	query := r.URL.Query().Get("q")
	result := make([]IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		if !names.Matches(identity.Name, query) {
			continue
		}
		result = append(result, IdentityResponse{ID: identity.ID, Name: identity.Name, CreatedAt: identity.CreatedAt})
	}
	respondJSON(w, http.StatusOK, result)
}

// IdentityAttendance handles GET /api/v1/identities/{id}/attendance
func (h *AttendanceHandler) IdentityAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid identity ID")
		return
	}

	identity, err := h.store.GetIdentity(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("failed to get identity")
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	sessions, err := h.store.ListForIdentity(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("failed to list attendance")
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	respondJSON(w, http.StatusOK, IdentityAttendanceResponse{
		ID:   identity.ID,
		Name: identity.Name,
		Logs: h.entries(sessions),
	})
}

func (h *AttendanceHandler) entries(sessions []database.AttendanceSession) []LogEntry {
	result := make([]LogEntry, len(sessions))
	for i, s := range sessions {
		result[i] = LogEntry{
			Name:   s.Name,
			Date:   s.Date,
			TimeIn: s.TimeIn.In(h.loc).Format(time.TimeOnly),
		}
		if s.TimeOut != nil {
			out := s.TimeOut.In(h.loc).Format(time.TimeOnly)
			result[i].TimeOut = &out
		}
	}
	return result
}
