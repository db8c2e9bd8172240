// Package eventstream bridges the hub's event bus onto an MQTT broker.
//
// Outbound, every local-origin event except time ticks is published as a
// JSON envelope {event_type, event_data} on the configured publish topic.
// Inbound, envelopes arriving on the subscribe topic are fired into the
// local bus with origin remote, so they are never echoed back out. Two hubs
// pointed at each other's topics therefore form a loop-free bidirectional
// bridge over the broker, an alternative to HTTP event forwarding when both
// ends already speak MQTT.
//
// The broker connection maintains itself: automatic reconnect with backoff,
// re-subscription after reconnect, and a retained last-will status message
// on hearth/system/status so peers can tell a crash from a graceful stop.
package eventstream
