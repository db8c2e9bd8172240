package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
)

// envelope is the JSON frame carried on the stream topics.
type envelope struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
}

// broker is the slice of Client the stream drives. Tests substitute a fake.
type broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
	Close() error
	HealthCheck(ctx context.Context) error
}

// Deps carries what Connect needs to assemble a Stream.
type Deps struct {
	// Config selects the broker and the topic pair. At least one of
	// PublishTopic and SubscribeTopic must be set.
	Config config.MQTTConfig

	// Bus is the hub's event bus. Required.
	Bus core.Bus

	// Logger receives operational logs. Optional.
	Logger core.Logger
}

// Stream is the running bridge between the bus and the broker. Outbound it
// mirrors local events onto the publish topic; inbound it fires envelopes
// from the subscribe topic into the bus with origin remote.
type Stream struct {
	cfg    config.MQTTConfig
	bus    core.Bus
	conn   broker
	logger core.Logger

	sub *core.Subscription
}

// Connect dials the broker and starts bridging. An empty publish topic
// disables the outbound side; an empty subscribe topic the inbound one.
func Connect(deps Deps) (*Stream, error) {
	if deps.Bus == nil {
		return nil, errors.New("eventstream: bus is required")
	}
	if deps.Config.PublishTopic == "" && deps.Config.SubscribeTopic == "" {
		return nil, errors.New("eventstream: no publish or subscribe topic configured")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	client, err := dial(deps.Config)
	if err != nil {
		return nil, err
	}
	client.SetLogger(logger)
	client.SetOnConnect(func() {
		logger.Info("event stream connected",
			"broker", deps.Config.Broker.Host, "client_id", deps.Config.Broker.ClientID)
	})
	client.SetOnDisconnect(func(err error) {
		logger.Warn("event stream connection lost", "error", err.Error())
	})

	s := &Stream{
		cfg:    deps.Config,
		bus:    deps.Bus,
		conn:   client,
		logger: logger,
	}
	if err := s.start(); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// start wires the two directions. Split from Connect so tests can drive a
// Stream over a fake broker.
func (s *Stream) start() error {
	if s.cfg.SubscribeTopic != "" {
		if err := s.conn.Subscribe(s.cfg.SubscribeTopic, byte(s.cfg.QoS), s.handleInbound); err != nil {
			return fmt.Errorf("eventstream: subscribing to %s: %w", s.cfg.SubscribeTopic, err)
		}
	}
	if s.cfg.PublishTopic != "" {
		s.sub = s.bus.Subscribe(core.MatchAll, s.publishEvent)
	}
	return nil
}

// Close detaches from the bus, drops the broker subscription and
// disconnects. Safe to call once.
func (s *Stream) Close() error {
	if s.sub != nil {
		s.bus.Unsubscribe(s.sub)
		s.sub = nil
	}
	if s.cfg.SubscribeTopic != "" {
		// Best effort: the disconnect below ends delivery anyway.
		if err := s.conn.Unsubscribe(s.cfg.SubscribeTopic); err != nil && !errors.Is(err, ErrNotConnected) {
			s.logger.Debug("event stream unsubscribe failed", "error", err.Error())
		}
	}
	return s.conn.Close()
}

// HealthCheck reports whether the broker connection is up.
func (s *Stream) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// publishEvent is the bus listener for the outbound direction. Only events
// this hub originated go out, so a peer bridging back at us cannot start a
// publish loop, and time ticks stay local as ever.
func (s *Stream) publishEvent(e core.Event) {
	if e.Origin != core.OriginLocal || e.Type == core.EventTimeChanged {
		return
	}

	payload, err := json.Marshal(envelope{EventType: e.Type, EventData: e.Data})
	if err != nil {
		s.logger.Error("encoding event for stream", "event_type", e.Type, "error", err.Error())
		return
	}

	if err := s.conn.Publish(s.cfg.PublishTopic, payload, byte(s.cfg.QoS), false); err != nil {
		s.logger.Error("publishing event to stream",
			"topic", s.cfg.PublishTopic, "event_type", e.Type, "error", err.Error())
	}
}

// handleInbound fires envelopes from the subscribe topic into the local
// bus. Arrivals carry origin remote, which keeps them off the outbound leg.
func (s *Stream) handleInbound(topic string, payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decoding stream payload on %s: %w", topic, err)
	}
	if env.EventType == "" {
		return fmt.Errorf("stream payload on %s has no event_type", topic)
	}

	s.bus.Publish(env.EventType, env.EventData, core.OriginRemote)
	return nil
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
