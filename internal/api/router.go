package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// The whole wire protocol sits behind the shared password, the root
	// path included: answering 200 there is how peers validate a binding.
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/", s.handleRoot)
		r.Get("/stream", s.handleStream)

		r.Get("/states", s.handleListStates)
		r.Get("/states/{entityID}", s.handleGetState)
		r.Post("/states/{entityID}", s.handleSetState)

		r.Get("/events", s.handleListEvents)
		r.Post("/events/{eventType}", s.handleFireEvent)

		r.Get("/services", s.handleListServices)
		r.Post("/services/{domain}/{service}", s.handleCallService)

		r.Post("/event_forwarding", s.handleEventForwarding)

		// History is only served when a recorder was wired in.
		if s.history != nil {
			r.Get("/history/states/{entityID}", s.handleStateHistory)
			r.Get("/history/events", s.handleEventHistory)
		}
	})

	return r
}

// handleRoot answers the binding validation probe.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "API running.")
}
