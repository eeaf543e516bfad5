package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/config"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/logging"
)

// writeConfig writes a config file into a temp dir and points
// WATCHKEEPER_CONFIG at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnvVar, path)
	return path
}

// TestRun_InvalidConfig verifies run fails with a missing config file.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_NoVessels verifies validation runs before any connection.
func TestRun_NoVessels(t *testing.T) {
	writeConfig(t, `
database:
  path: "`+filepath.Join(t.TempDir(), "wk.db")+`"
logging:
  format: text
`)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "at least one vessel") {
		t.Fatalf("run() error = %v", err)
	}
}

// TestRun_UnknownProfile verifies a bad profile path fails startup.
func TestRun_UnknownProfile(t *testing.T) {
	writeConfig(t, `
vessels:
  - id: aurora
    profile: /nonexistent/profile.yaml
database:
  path: "`+filepath.Join(t.TempDir(), "wk.db")+`"
`)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "loading profile for aurora") {
		t.Fatalf("run() error = %v", err)
	}
}

// TestRun_BrokerUnreachable verifies startup against a closed MQTT port
// fails or cancels cleanly rather than hanging.
func TestRun_BrokerUnreachable(t *testing.T) {
	writeConfig(t, `
vessels:
  - id: aurora
database:
  path: "`+filepath.Join(t.TempDir(), "wk.db")+`"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id: "watchkeeper-test"
  reconnect:
    initial_delay: 1
    max_delay: 5
logging:
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Logf("run() returned error (expected): %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnvVar, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv(configEnvVar, "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestLoadVessels(t *testing.T) {
	cfg := &config.Config{
		Vessels: []config.VesselConfig{
			{ID: "aurora", Name: "Aurora"},
			{ID: "kestrel", Name: "Kestrel"},
		},
	}
	cfg.Safety.Devices = config.SafetyDevicesConfig{
		BilgeFloatHigh: "bilge_float_high",
		BilgeOverride:  "bilge_pump_auto_override",
		NavLights:      "nav_lights",
		AnchorLight:    "anchor_light",
	}

	var buf strings.Builder
	log := logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "test", &buf)

	tracker, err := loadVessels(cfg, cfg.SafetyPolicy(), log)
	if err != nil {
		t.Fatalf("loadVessels() error = %v", err)
	}
	if got := tracker.Vessels(); len(got) != 2 || got[0] != "aurora" || got[1] != "kestrel" {
		t.Errorf("Vessels() = %v", got)
	}
	if strings.Contains(buf.String(), "vessel profile incomplete") {
		t.Error("default profile reported as incomplete")
	}

	// A policy naming a device the profile lacks only warns.
	cfg.Safety.Devices.AnchorLight = "masthead_anchor"
	buf.Reset()
	if _, err := loadVessels(cfg, cfg.SafetyPolicy(), log); err != nil {
		t.Fatalf("loadVessels() error = %v", err)
	}
	if !strings.Contains(buf.String(), "vessel profile incomplete") {
		t.Error("missing safety device not reported")
	}
}
