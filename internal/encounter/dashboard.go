package encounter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"diagnosis-decoder/internal/bus"
)

// DashboardHandler streams completion notifications to listening dashboards
// over server-sent events.
type DashboardHandler struct {
	notify *bus.Bus[Notification]
}

// NewDashboardHandler creates the dashboard stream handler.
func NewDashboardHandler(notify *bus.Bus[Notification]) *DashboardHandler {
	return &DashboardHandler{notify: notify}
}

func (h *DashboardHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, cancel := h.notify.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
