package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/hearth-core/internal/remote"
)

// handleEventForwarding registers or removes an event forwarding target.
//
// The form carries host, optional port and the shared api_password, which
// doubles as the credential this hub will use when replaying events to the
// target. A _METHOD=DELETE field tunnels deregistration through POST, for
// clients that cannot issue DELETE with a form body.
func (s *Server) handleEventForwarding(w http.ResponseWriter, r *http.Request) {
	host := r.PostFormValue("host")
	if host == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "No host received.")
		return
	}

	port := remote.DefaultPort
	if raw := r.PostFormValue("port"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 65535 {
			writeMessage(w, http.StatusUnprocessableEntity, "Invalid parameters received.")
			return
		}
		port = parsed
	}

	target := remote.NewBinding(host, port, r.PostFormValue("api_password"))

	if r.PostFormValue("_METHOD") == "DELETE" {
		s.forwarder.Disconnect(target)
		writeMessage(w, http.StatusOK, "Event forwarding cancelled.")
		return
	}

	// Probe the target before wiring it in: a target that rejects the
	// shared password or is unreachable would only generate error logs on
	// every event.
	if !target.Validate(false) {
		writeMessage(w, http.StatusUnprocessableEntity, "Unable to validate api connection.")
		return
	}

	s.forwarder.Connect(target)
	writeMessage(w, http.StatusOK, "Event forwarding setup.")
}
