package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hearth-core/internal/infrastructure/config"
	"github.com/nerrad567/hearth-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for the local dev InfluxDB.
// These values match docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "hearth-dev-token",
		Org:           "hearth",
		Bucket:        "states",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// connectOrSkip connects to the local dev InfluxDB, skipping the test when
// the server is not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() {
		client.Close() //nolint:errcheck // Test cleanup
	})
	return client
}

// captureWriteErrors registers an error callback and returns a getter.
func captureWriteErrors(client *influxdb.Client) func() error {
	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

func TestConnect(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error when disabled")
	}
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	_, err := influxdb.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error for invalid URL")
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestWriteStateValue(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := captureWriteErrors(client)

	client.WriteStateValue("sensor.test_temp", 21.5, time.Now())
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteAttributeValue(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := captureWriteErrors(client)

	client.WriteAttributeValue("light.test_lamp", "brightness", 180, time.Now())
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePoint(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := captureWriteErrors(client)

	client.WritePoint(
		"custom_measurement",
		map[string]string{"source": "test"},
		map[string]interface{}{"value": 99.9, "count": 5},
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := captureWriteErrors(client)

	timestamp := time.Now().Add(-1 * time.Hour)
	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]interface{}{"value": 88.8},
		timestamp,
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestClose(t *testing.T) {
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}

	client.WriteStateValue("sensor.close_test", 1.0, time.Now())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
