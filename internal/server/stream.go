package server

import (
	"fmt"
	"net/http"
	"time"
)

// handleStream serves the annotated preview as MJPEG. Frames are taken from
// the hub, so the camera is only read by the acquisition loop.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	ticker := time.NewTicker(time.Second / time.Duration(s.config.PushRate))
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.config.Hub.Done():
			return
		case <-ticker.C:
		}

		frame, seq := s.config.Hub.Frame()
		if seq == 0 || seq == last {
			continue
		}
		last = seq

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
