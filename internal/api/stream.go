package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
	"github.com/nerrad567/hearth-core/internal/infrastructure/logging"
)

// streamEvent is the JSON shape events take on the WebSocket stream.
type streamEvent struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	Origin    core.Origin    `json:"origin"`
}

// upgrader configures the WebSocket upgrader. Origin checks are skipped:
// the stream sits behind the api_password like every other endpoint.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamClient is one WebSocket consumer holding its own bus subscriptions.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	bus  core.Bus
	subs []*core.Subscription
}

// streamRegistry tracks connected stream clients so server shutdown can
// drop them all.
type streamRegistry struct {
	logger  *logging.Logger
	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

func newStreamRegistry(logger *logging.Logger) *streamRegistry {
	return &streamRegistry{
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

func (reg *streamRegistry) add(client *streamClient) {
	reg.mu.Lock()
	reg.clients[client] = struct{}{}
	count := len(reg.clients)
	reg.mu.Unlock()
	reg.logger.Debug("stream client connected", "clients", count)
}

// remove drops a client, closes its send channel and detaches it from the
// bus. Only the goroutine that wins the map deletion does the teardown,
// preventing double-close between a departing readPump and closeAll.
func (reg *streamRegistry) remove(client *streamClient) {
	reg.mu.Lock()
	_, existed := reg.clients[client]
	delete(reg.clients, client)
	count := len(reg.clients)
	reg.mu.Unlock()

	if existed {
		client.detach()
		close(client.send)
	}
	reg.logger.Debug("stream client disconnected", "clients", count)
}

// closeAll disconnects all clients so their pump goroutines exit cleanly.
func (reg *streamRegistry) closeAll() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for client := range reg.clients {
		client.detach()
		close(client.send)
		client.conn.Close()
		delete(reg.clients, client)
	}
}

// handleStream upgrades the connection and streams bus events to it as
// JSON messages. The optional restrict query parameter narrows the stream
// to a comma-separated list of event types; without it the client gets a
// match-all subscription.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	restrict := parseRestrict(r.URL.Query().Get("restrict"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("stream upgrade failed", "error", err)
		return
	}

	cfg := normaliseStreamConfig(s.streamCfg)

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, cfg.SendBuffer),
		bus:  s.hub.Bus,
	}

	listener := func(e core.Event) { client.enqueue(e) }
	for _, eventType := range restrict {
		client.subs = append(client.subs, s.hub.Bus.Subscribe(eventType, listener))
	}

	s.streams.add(client)
	s.logger.Info("stream client subscribed", "restrict", strings.Join(restrict, ","))

	go client.writePump(cfg)
	go client.readPump(cfg, s.streams)
}

// parseRestrict splits the restrict parameter into event types, falling
// back to a single match-all subscription.
func parseRestrict(raw string) []string {
	var types []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, part)
		}
	}
	if len(types) == 0 {
		return []string{core.MatchAll}
	}
	return types
}

// normaliseStreamConfig substitutes workable values for unset fields.
func normaliseStreamConfig(cfg config.StreamConfig) config.StreamConfig {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return cfg
}

// enqueue marshals an event and queues it for delivery. A slow consumer
// loses events rather than blocking the worker that dispatched this
// listener.
func (c *streamClient) enqueue(e core.Event) {
	data, err := json.Marshal(streamEvent{
		EventType: e.Type,
		EventData: e.Data,
		Origin:    e.Origin,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend attempts to queue data for the client. It absorbs closed-channel
// panics (client torn down mid-dispatch) and drops on a full buffer.
func (c *streamClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

// detach removes the client's listeners from the bus.
func (c *streamClient) detach() {
	for _, sub := range c.subs {
		c.bus.Unsubscribe(sub)
	}
	c.subs = nil
}

// writePump writes queued events and protocol pings to the connection.
func (c *streamClient) writePump(cfg config.StreamConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection. The stream is one-way, so inbound
// payloads are discarded; reading still drives pong handling and detects
// the client going away.
func (c *streamClient) readPump(cfg config.StreamConfig, reg *streamRegistry) {
	defer func() {
		reg.remove(c)
		c.conn.Close()
	}()

	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
	}
}
