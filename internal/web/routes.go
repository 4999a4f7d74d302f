package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	// Create handlers
	controlHandler := handlers.NewControlHandler(s.deps.Controller)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Store, s.config.Attendance.Location())
	streamHandler := handlers.NewStreamHandler(s.deps.Frames)
	configHandler := handlers.NewConfigHandler(s.config)

	// The MJPEG feed runs for as long as the viewer stays
	s.router.Get("/video_feed", streamHandler.VideoFeed)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Everything else is bounded
	s.router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		// Unversioned routes used by the dashboard page
		r.Post("/api/control", controlHandler.Control)
		r.Get("/api/logs", attendanceHandler.Logs)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", handlers.HealthCheck)
			r.Post("/control", controlHandler.Control)
			r.Get("/mode", controlHandler.Mode)
			r.Get("/logs", attendanceHandler.Logs)
			r.Get("/identities", attendanceHandler.ListIdentities)
			r.Get("/identities/{id}/attendance", attendanceHandler.IdentityAttendance)
			r.Get("/config", configHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.SecurityHeaders())
			r.Get("/", serveIndex)
			r.Get("/user/{id}", serveIndex)
		})
	})
}

// serveIndex serves the dashboard page; it renders the user view on /user/{id}
func serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(static.Index())
}
