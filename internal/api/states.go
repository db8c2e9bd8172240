package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListStates returns every entity as a map of entity_id to state dict.
func (s *Server) handleListStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.States.All())
}

// handleGetState returns one entity's state dict, or 422 when the entity
// does not exist. Peers treat any non-200 as "absent".
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	state, ok := s.hub.States.Get(entityID)
	if !ok {
		writeMessage(w, http.StatusUnprocessableEntity, "Entity not found.")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSetState updates or creates an entity from form fields: new_state
// holds the value, attributes an optional JSON object. Answers 201 with the
// stored dict and a Location header for the entity.
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	newState := r.PostFormValue("new_state")
	if newState == "" {
		writeMessage(w, http.StatusBadRequest, "No new_state received.")
		return
	}

	var attributes map[string]any
	if raw := r.PostFormValue("attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON in attributes.")
			return
		}
	}

	s.hub.States.Set(entityID, newState, attributes)

	// Read back what the store holds rather than echoing the input: the
	// store stamps last_changed.
	stored, ok := s.hub.States.Get(entityID)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "State write not visible.")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/states/%s", entityID))
	writeJSON(w, http.StatusCreated, stored)
}
