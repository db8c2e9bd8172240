package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListServices returns the registered services per domain.
func (s *Server) handleListServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"services": s.hub.Services.Services(),
	})
}

// handleCallService invokes domain.service with the optional service_data
// JSON object. The call is asynchronous: 200 means queued, not done, and
// unknown services are dropped by the registry, exactly as local calls are.
func (s *Server) handleCallService(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	service := chi.URLParam(r, "service")

	var data map[string]any
	if raw := r.PostFormValue("service_data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON in service_data.")
			return
		}
	}

	s.hub.Services.Call(domain, service, data)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Service %s.%s called.", domain, service))
}
