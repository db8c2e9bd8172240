// Hearth Core - Home Automation Hub
//
// This is the main entry point for the Hearth Core application. Hearth keeps
// a houseful of entity states in one place and synchronises them between
// instances:
//   - Event-driven core (bus, state store, service registry, worker pool)
//   - HTTP wire protocol for linking instances and remote control
//   - Optional history recorder (SQLite, InfluxDB) and MQTT event bridge
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/hearth-core/migrations"

	"github.com/nerrad567/hearth-core/internal/api"
	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/eventstream"
	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
	"github.com/nerrad567/hearth-core/internal/infrastructure/database"
	"github.com/nerrad567/hearth-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/hearth-core/internal/infrastructure/logging"
	"github.com/nerrad567/hearth-core/internal/process"
	"github.com/nerrad567/hearth-core/internal/recorder"
	"github.com/nerrad567/hearth-core/internal/remote"
	"github.com/nerrad567/hearth-core/internal/util"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// forwardingTeardownTimeout caps the shutdown call that deregisters this
// instance from the peer's forwarder.
const forwardingTeardownTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Assemble the hub. Everything downstream is wired against it the same
	// way whether it is local or backed by a remote peer.
	hub, peer, err := buildHub(cfg, log)
	if err != nil {
		return err
	}
	log.Info("hub assembled",
		"name", cfg.Hub.Name,
		"workers", cfg.Hub.Workers,
		"tick_interval", cfg.Hub.GetTickInterval(),
	)

	// Connect to InfluxDB (optional numeric state sink)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		if !cfg.Recorder.Enabled {
			log.Warn("InfluxDB enabled without the recorder, no points will be written")
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Open the history database and start the recorder (optional)
	var db *database.DB
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		// Run migrations
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		rec, err = recorder.New(recorder.Deps{
			DB:        db,
			Bus:       hub.Bus,
			Logger:    log,
			Influx:    influxClient,
			PurgeDays: cfg.Recorder.PurgeDays,
		})
		if err != nil {
			return fmt.Errorf("creating recorder: %w", err)
		}
		if startErr := rec.Start(ctx); startErr != nil {
			return fmt.Errorf("starting recorder: %w", startErr)
		}
		defer func() {
			log.Info("stopping recorder")
			if closeErr := rec.Close(); closeErr != nil {
				log.Error("error stopping recorder", "error", closeErr)
			}
		}()
	} else {
		log.Info("recorder disabled")
	}

	// Bridge the bus onto MQTT (optional)
	var stream *eventstream.Stream
	if cfg.MQTT.Enabled {
		stream, err = eventstream.Connect(eventstream.Deps{
			Config: cfg.MQTT,
			Bus:    hub.Bus,
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("connecting event stream: %w", err)
		}
		defer func() {
			log.Info("disconnecting event stream")
			if closeErr := stream.Close(); closeErr != nil {
				log.Error("error closing event stream", "error", closeErr)
			}
		}()
		log.Info("event stream connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"publish_topic", cfg.MQTT.PublishTopic,
			"subscribe_topic", cfg.MQTT.SubscribeTopic,
		)
	} else {
		log.Info("event stream disabled")
	}

	// Watch host processes (optional)
	if len(cfg.Process.Watch) > 0 {
		watcher := process.New(hub, cfg.Process.Watch, log)
		watcher.Start()
		defer func() {
			log.Info("stopping process watcher")
			watcher.Stop()
		}()
		log.Info("process watcher started", "entities", watcher.EntityIDs())
	}

	// Start the HTTP API
	srv, err := api.New(api.Deps{
		Config:  cfg.API,
		Stream:  cfg.Stream,
		Logger:  log,
		Hub:     hub,
		History: rec,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting api server: %w", startErr)
	}
	defer func() {
		log.Info("stopping api server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing api server", "error", closeErr)
		}
	}()

	// With our own API listening, ask the peer to forward its events back.
	// This is what keeps the mirrored state cache current. The peer
	// validates the return address before accepting it, which is why this
	// happens after srv.Start.
	if peer != nil && cfg.Remote.ForwardBack {
		localAPI := remote.NewBinding(forwardBackHost(cfg.API.Host), cfg.API.Port, cfg.API.Password)
		if fwdErr := remote.ConnectForwarding(ctx, peer, localAPI); fwdErr != nil {
			log.Error("connecting peer event forwarding",
				"peer", peer.Addr(),
				"local", localAPI.Addr(),
				"error", fwdErr,
			)
		} else {
			log.Info("peer forwards events to local api",
				"peer", peer.Addr(),
				"local", localAPI.Addr(),
			)
			defer func() {
				teardownCtx, cancel := context.WithTimeout(context.Background(), forwardingTeardownTimeout)
				defer cancel()
				if discErr := remote.DisconnectForwarding(teardownCtx, peer, localAPI); discErr != nil {
					log.Warn("disconnecting peer event forwarding", "error", discErr)
				}
			}()
		}
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, stream, influxClient, srv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Announce the hub on the bus and start the time ticker
	hub.Start()
	defer hub.Stop()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Hub (stop ticking, announce hearth_stop)
	// 2. Peer forwarding deregistration (if connected)
	// 3. API server
	// 4. Process watcher (if watching)
	// 5. Event stream (if enabled)
	// 6. Recorder, then its database (if enabled)
	// 7. InfluxDB (if enabled)

	log.Info("Hearth Core stopped")
	return nil
}

// buildHub assembles the hub run() wires everything else against. With
// remote disabled the hub is entirely local and the returned binding is nil;
// otherwise the bus and store are backed by the configured peer and the
// binding names that peer.
func buildHub(cfg *config.Config, log *logging.Logger) (*core.Hub, *remote.Binding, error) {
	if !cfg.Remote.Enabled {
		return core.New(cfg.Hub.Workers, cfg.Hub.GetTickInterval(), log), nil, nil
	}

	peer := remote.NewBinding(cfg.Remote.Host, cfg.Remote.Port, cfg.Remote.Password)

	// Forwarding back is connected later, once the local API is listening;
	// the peer rejects return addresses it cannot validate.
	hub, err := remote.NewHub(peer, nil, cfg.Hub.Workers, cfg.Hub.GetTickInterval(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting remote hub: %w", err)
	}

	log.Info("hub backed by remote peer", "peer", peer.Addr())
	return hub, peer, nil
}

// forwardBackHost picks the address a peer should reach this instance on.
// A concrete API bind host works as-is; wildcard and empty binds fall back
// to the machine's outbound address.
func forwardBackHost(bindHost string) string {
	switch bindHost {
	case "", "0.0.0.0", "::":
		return util.LocalIP()
	default:
		return bindHost
	}
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: History database to check (may be nil if recorder disabled)
//   - stream: MQTT event stream to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - srv: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, stream *eventstream.Stream, influxClient *influxdb.Client, srv *api.Server) error {
	// Check history database
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	// Check MQTT event stream
	if stream != nil {
		if err := stream.HealthCheck(ctx); err != nil {
			return fmt.Errorf("event stream: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Check HTTP API
	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	// Remote hub health is verified during construction - buildHub fails
	// outright when the peer is unreachable or rejects the password.

	return nil
}
