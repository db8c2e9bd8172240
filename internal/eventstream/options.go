package eventstream

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
)

const (
	// statusTopic carries the retained online/offline presence of this hub,
	// including the last-will message the broker fires on an unclean
	// disconnect.
	statusTopic = "hearth/system/status"

	// connectTimeout is the maximum wait for the initial connection.
	connectTimeout = 10 * time.Second

	// ackTimeout is the maximum wait for publish/subscribe acknowledgement.
	ackTimeout = 5 * time.Second

	// disconnectQuiesce is the grace period, in milliseconds, for in-flight
	// operations when disconnecting.
	disconnectQuiesce = 1000

	// keepAlive is the MQTT keepalive interval.
	keepAlive = 60 * time.Second

	maxQoS = 2
)

// maxPayloadSize caps outbound messages at 1MB, in line with typical broker
// limits.
const maxPayloadSize = 1 << 20

// buildClientOptions translates hub configuration into paho client options:
// broker URL (tcp or ssl), client identity, optional credentials, clean
// session, and auto-reconnect with exponential backoff.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Start fresh on every connect; subscriptions are restored from our own
	// tracking rather than a persistent broker session.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return opts
}

// configureLWT registers the last-will message the broker publishes if this
// client vanishes without a graceful disconnect. Retained at QoS 1 so late
// subscribers still learn the hub is gone.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(statusTopic, offlinePayload(clientID, "unexpected_disconnect"), 1, true)
}

// onlinePayload is the retained status published after every (re)connect.
func onlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// offlinePayload is the status published on shutdown, and by the broker as
// the last will. The reason field distinguishes the two.
func offlinePayload(clientID, reason string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"%s","timestamp":"%s"}`,
		clientID,
		reason,
		time.Now().UTC().Format(time.RFC3339),
	)
}
