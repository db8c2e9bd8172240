package api

import (
	"encoding/json"
	"net/http"
)

// Message is the envelope every informational wire response uses. Peers
// decide on the status code alone; the message is for humans and logs.
type Message struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes a message envelope with the given status code.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Message{Message: message})
}
