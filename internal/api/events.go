package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hearth-core/internal/core"
)

// handleListEvents returns listener counts per event type.
func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"event_listeners": s.hub.Bus.ListenerCounts(),
	})
}

// handleFireEvent fires an event into the local bus. The optional
// event_data form field carries a JSON object. The event enters with
// remote origin: it came over the wire, and re-forwarding it would bounce
// it between linked hubs forever.
func (s *Server) handleFireEvent(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "eventType")

	var data map[string]any
	if raw := r.PostFormValue("event_data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON in event_data.")
			return
		}
	}

	s.hub.Bus.Publish(eventType, data, core.OriginRemote)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Event %s fired.", eventType))
}
