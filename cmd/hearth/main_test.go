package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfigPath verifies run fails with an invalid config path.
func TestRun_InvalidConfigPath(t *testing.T) {
	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)

	os.Setenv("HEARTH_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingAPIPassword verifies run fails when no API password is set.
func TestRun_MissingAPIPassword(t *testing.T) {
	configPath := writeTestConfig(t, `
hub:
  name: test-hub
  workers: 2
  tick_interval: 1

api:
  host: "127.0.0.1"
  port: 18123
  timeouts:
    read: 30
    write: 60
    idle: 120

logging:
  level: error
  format: text
  output: stdout
`)

	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)
	os.Setenv("HEARTH_CONFIG", configPath)

	// The password env override would mask the misconfiguration.
	originalPassword := os.Getenv("HEARTH_API_PASSWORD")
	defer os.Setenv("HEARTH_API_PASSWORD", originalPassword)
	os.Unsetenv("HEARTH_API_PASSWORD")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without an API password")
	}
}

// TestRun_RecorderWithoutDatabasePath verifies run fails when the recorder
// is enabled but no database path is configured.
func TestRun_RecorderWithoutDatabasePath(t *testing.T) {
	configPath := writeTestConfig(t, `
hub:
  name: test-hub
  workers: 2
  tick_interval: 1

api:
  host: "127.0.0.1"
  port: 18123
  password: "test-password"
  timeouts:
    read: 30
    write: 60
    idle: 120

recorder:
  enabled: true

database:
  path: ""

logging:
  level: error
  format: text
  output: stdout
`)

	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)
	os.Setenv("HEARTH_CONFIG", configPath)

	// The database path env override would mask the misconfiguration.
	originalDBPath := os.Getenv("HEARTH_DATABASE_PATH")
	defer os.Setenv("HEARTH_DATABASE_PATH", originalDBPath)
	os.Unsetenv("HEARTH_DATABASE_PATH")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with recorder enabled and no database path")
	}
}

// TestRun_StartupAndShutdown runs a full lifecycle: local hub, recorder on a
// temporary database, HTTP API, clean shutdown on context expiry. No
// external services are required.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, `
hub:
  name: test-hub
  workers: 2
  tick_interval: 1

api:
  host: "127.0.0.1"
  port: 18124
  password: "test-password"
  timeouts:
    read: 30
    write: 60
    idle: 120

recorder:
  enabled: true
  purge_days: 0

database:
  path: "`+filepath.Join(tmpDir, "test.db")+`"
  wal_mode: true
  busy_timeout: 5

influxdb:
  enabled: false

mqtt:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`)

	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)
	os.Setenv("HEARTH_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() returned error on clean lifecycle: %v", err)
	}
}

// TestRun_CancelledBeforeStartup verifies an already-cancelled context
// aborts startup with an error instead of hanging.
func TestRun_CancelledBeforeStartup(t *testing.T) {
	configPath := writeTestConfig(t, `
hub:
  name: test-hub
  workers: 2
  tick_interval: 1

api:
  host: "127.0.0.1"
  port: 18125
  password: "test-password"
  timeouts:
    read: 30
    write: 60
    idle: 120

logging:
  level: error
  format: text
  output: stdout
`)

	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)
	os.Setenv("HEARTH_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the context is cancelled before startup")
	}
}

// TestGetConfigPath_Default verifies the default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)

	os.Unsetenv("HEARTH_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies the environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HEARTH_CONFIG")
	defer os.Setenv("HEARTH_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HEARTH_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestForwardBackHost verifies bind host translation for the forward-back
// registration.
func TestForwardBackHost(t *testing.T) {
	if got := forwardBackHost("192.168.1.5"); got != "192.168.1.5" {
		t.Errorf("forwardBackHost(concrete) = %q, want it kept", got)
	}

	for _, bind := range []string{"", "0.0.0.0", "::"} {
		got := forwardBackHost(bind)
		if net.ParseIP(got) == nil {
			t.Errorf("forwardBackHost(%q) = %q, not a valid IP", bind, got)
		}
		if got == "0.0.0.0" || got == "::" {
			t.Errorf("forwardBackHost(%q) = %q, wildcard is not reachable", bind, got)
		}
	}
}

// writeTestConfig drops a config file in a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}
