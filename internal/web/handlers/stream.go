package handlers

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"
)

const streamBoundary = "frame"

// FrameSource yields encoded frames for a viewer
type FrameSource interface {
	Frames(ctx context.Context) iter.Seq[[]byte]
}

// StreamHandler serves the annotated camera feed as MJPEG
type StreamHandler struct {
	frames FrameSource
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// VideoFeed handles GET /video_feed
func (h *StreamHandler) VideoFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// the stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range h.frames.Frames(r.Context()) {
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
