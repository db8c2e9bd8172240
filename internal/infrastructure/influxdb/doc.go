// Package influxdb provides InfluxDB connectivity for Hearth.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for numeric entity data:
//   - State values that parse as numbers (temperatures, brightness, power)
//   - Numeric attributes riding on state changes
//
// The recorder feeds it; SQLite remains the source of truth for full
// history, InfluxDB serves dashboards and retention-heavy queries.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hearth",
//	    Bucket: "states",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteStateValue("sensor.hallway_temp", 21.5, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
