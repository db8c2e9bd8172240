package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearth Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Remote   RemoteConfig   `yaml:"remote"`
	Database DatabaseConfig `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Process  ProcessConfig  `yaml:"process"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HubConfig contains the event bus and worker pool settings.
type HubConfig struct {
	// Name identifies this hub in logs and on the MQTT event stream.
	Name string `yaml:"name"`

	// Workers is the fixed size of the worker pool. The pool starts warning
	// about saturation once the backlog exceeds workers squared.
	Workers int `yaml:"workers"`

	// TickInterval is the time_changed cadence in seconds.
	TickInterval int `yaml:"tick_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Password string           `yaml:"password"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// StreamConfig contains WebSocket event stream settings.
type StreamConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
	SendBuffer     int `yaml:"send_buffer"`
}

// RemoteConfig binds this instance to a peer hub. When enabled, the local
// bus and state store become views onto the peer instead of self-contained.
type RemoteConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	// ForwardBack asks the peer to forward its events to this instance's
	// own API address, completing the bidirectional link.
	ForwardBack bool `yaml:"forward_back"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// RecorderConfig contains event/state history settings.
type RecorderConfig struct {
	Enabled bool `yaml:"enabled"`

	// PurgeDays drops history rows older than this many days. 0 keeps
	// everything.
	PurgeDays int `yaml:"purge_days"`
}

// InfluxDBConfig contains InfluxDB connection settings for the numeric
// state sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MQTTConfig contains MQTT event stream settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// PublishTopic carries local events out; SubscribeTopic brings peer
	// events in. Point two hubs at each other's topics for a full bridge.
	PublishTopic   string `yaml:"publish_topic"`
	SubscribeTopic string `yaml:"subscribe_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// ProcessConfig maps friendly names to `ps` command substrings. Each entry
// becomes a process.<name> entity tracking whether the command is running.
type ProcessConfig struct {
	Watch map[string]string `yaml:"watch"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTH_SECTION_KEY
// For example: HEARTH_DATABASE_PATH, HEARTH_API_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Name:         "hearth",
			Workers:      4,
			TickInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8123,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Stream: StreamConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
			SendBuffer:     16,
		},
		Remote: RemoteConfig{
			Port: 8123,
		},
		Database: DatabaseConfig{
			Path:        "./data/hearth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearth-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			PublishTopic:   "hearth/events",
			SubscribeTopic: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEARTH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("HEARTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HEARTH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HEARTH_API_PASSWORD"); v != "" {
		cfg.API.Password = v
	}

	// Remote peer
	if v := os.Getenv("HEARTH_REMOTE_PASSWORD"); v != "" {
		cfg.Remote.Password = v
	}

	// Database
	if v := os.Getenv("HEARTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HEARTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEARTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HEARTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.Workers < 1 {
		errs = append(errs, "hub.workers must be at least 1")
	}
	if c.Hub.TickInterval < 1 {
		errs = append(errs, "hub.tick_interval must be at least 1 second")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The password guards every wire operation; an empty one would leave
	// the whole hub writable by anyone who can reach the port.
	if c.API.Password == "" {
		errs = append(errs, "api.password is required (set HEARTH_API_PASSWORD environment variable)")
	}

	if c.Remote.Enabled {
		if c.Remote.Host == "" {
			errs = append(errs, "remote.host is required when remote.enabled is true")
		}
		if c.Remote.Port < 1 || c.Remote.Port > 65535 {
			errs = append(errs, "remote.port must be between 1 and 65535")
		}
	}

	if c.Recorder.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when recorder.enabled is true")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.PublishTopic == "" && c.MQTT.SubscribeTopic == "" {
		errs = append(errs, "mqtt requires publish_topic or subscribe_topic when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the hub tick cadence as a Duration.
func (c HubConfig) GetTickInterval() time.Duration {
	return time.Duration(c.TickInterval) * time.Second
}
