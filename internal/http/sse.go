package http

import (
	"fmt"
	"log/slog"
	"net/http"
)

// handleEvents streams change notifications to the browser as
// server-sent events. Each event tells the client to refresh its
// partials; the payload carries no data.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// Tell the client the stream is live
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.DebugContext(r.Context(), "Event stream closed by client")
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprint(w, "event: expense-changed\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
