// Package api implements the HTTP wire protocol and WebSocket event stream
// for Hearth Core.
//
// This package provides:
//   - REST endpoints for reading and writing entity states
//   - Event firing and listener inspection
//   - Service discovery and invocation
//   - Event forwarding registration for peer hubs
//   - WebSocket event stream for real-time consumers
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The server is a thin shell over the hub: every handler reads from or
// publishes into the event bus and state store it was constructed with.
// Events fired over the wire re-enter the bus with remote origin, which is
// what keeps two linked hubs from bouncing the same event back and forth
// forever.
//
// # Security
//
// Every endpoint requires the shared api_password, passed as a query
// parameter on GET requests and a form field otherwise. There is no token
// or session auth: peers are trusted once they hold the password.
//
// # Graceful Degradation
//
// The server operates without a forwarder target or stream clients; those
// paths only cost anything once someone registers.
package api
