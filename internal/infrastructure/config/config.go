package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/watchkeeper/internal/safety"
)

// Config is the root configuration structure for Watchkeeper.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Vessels     []VesselConfig    `yaml:"vessels"`
	Watchkeeper WatchkeeperConfig `yaml:"watchkeeper"`
	Safety      SafetyConfig      `yaml:"safety"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// VesselConfig identifies one monitored vessel.
type VesselConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Profile is the path to the vessel's device profile.
	// Empty selects the built-in cabin cruiser profile.
	Profile string `yaml:"profile"`
}

// WatchkeeperConfig contains poll loop settings. Durations are in seconds.
type WatchkeeperConfig struct {
	PollInterval int `yaml:"poll_interval"`
	CycleTimeout int `yaml:"cycle_timeout"`
	AdviceMaxAge int `yaml:"advice_max_age"`

	// StateMaxAge is how long a device report stays valid. Older reports
	// read as unknown, so guards on them fail. Zero disables expiry.
	StateMaxAge int `yaml:"state_max_age"`

	// DryRun reconciles and audits without publishing commands.
	DryRun bool `yaml:"dry_run"`
}

// SafetyConfig contains the safety rule policy.
type SafetyConfig struct {
	Devices SafetyDevicesConfig `yaml:"devices"`
	Bilge   BilgeConfig         `yaml:"bilge"`
	Latch   LatchConfig         `yaml:"latch"`
}

// SafetyDevicesConfig names the devices the safety rules act on.
type SafetyDevicesConfig struct {
	BilgeFloatHigh string `yaml:"bilge_float_high"`
	BilgeOverride  string `yaml:"bilge_override"`
	NavLights      string `yaml:"nav_lights"`
	AnchorLight    string `yaml:"anchor_light"`
}

// BilgeConfig contains the bilge pump duty cycle.
type BilgeConfig struct {
	MaxRunSeconds int `yaml:"max_run_seconds"`
	RestSeconds   int `yaml:"rest_seconds"`
}

// LatchConfig contains sensor debounce hold windows.
type LatchConfig struct {
	HoldSeconds int            `yaml:"hold_seconds"`
	Overrides   map[string]int `yaml:"overrides"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains the Prometheus exposition listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
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
// Environment variables follow the pattern: WATCHKEEPER_SECTION_KEY
// For example: WATCHKEEPER_DATABASE_PATH, WATCHKEEPER_MQTT_HOST
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
	devices := safety.DefaultDevices()
	return &Config{
		Watchkeeper: WatchkeeperConfig{
			PollInterval: 10,
			CycleTimeout: 5,
			AdviceMaxAge: 60,
		},
		Safety: SafetyConfig{
			Devices: SafetyDevicesConfig{
				BilgeFloatHigh: devices.BilgeFloatHigh,
				BilgeOverride:  devices.BilgeOverride,
				NavLights:      devices.NavLights,
				AnchorLight:    devices.AnchorLight,
			},
			Bilge: BilgeConfig{
				MaxRunSeconds: int(safety.DefaultBilgeMaxRun / time.Second),
				RestSeconds:   int(safety.DefaultBilgeRest / time.Second),
			},
			Latch: LatchConfig{
				HoldSeconds: int(safety.DefaultLatchHold / time.Second),
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/watchkeeper.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "watchkeeper",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 9464,
			Path: "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WATCHKEEPER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WATCHKEEPER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WATCHKEEPER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WATCHKEEPER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WATCHKEEPER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("WATCHKEEPER_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("WATCHKEEPER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Poll loop
	if v := os.Getenv("WATCHKEEPER_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watchkeeper.PollInterval = n
		}
	}

	// Logging
	if v := os.Getenv("WATCHKEEPER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	// Vessels
	if len(c.Vessels) == 0 {
		errs = append(errs, "at least one vessel is required")
	}
	seen := make(map[string]bool, len(c.Vessels))
	for i, v := range c.Vessels {
		switch {
		case v.ID == "":
			errs = append(errs, fmt.Sprintf("vessels[%d].id is required", i))
		case strings.ContainsAny(v.ID, "/+# "):
			errs = append(errs, fmt.Sprintf("vessels[%d].id %q must not contain '/', '+', '#' or spaces", i, v.ID))
		case seen[v.ID]:
			errs = append(errs, fmt.Sprintf("vessels[%d].id %q is duplicated", i, v.ID))
		}
		seen[v.ID] = true
	}

	// Poll loop
	if c.Watchkeeper.PollInterval < 1 {
		errs = append(errs, "watchkeeper.poll_interval must be at least 1 second")
	}
	if c.Watchkeeper.CycleTimeout < 1 {
		errs = append(errs, "watchkeeper.cycle_timeout must be at least 1 second")
	} else if c.Watchkeeper.CycleTimeout > c.Watchkeeper.PollInterval && c.Watchkeeper.PollInterval >= 1 {
		errs = append(errs, "watchkeeper.cycle_timeout must not exceed watchkeeper.poll_interval")
	}
	if c.Watchkeeper.AdviceMaxAge < 0 {
		errs = append(errs, "watchkeeper.advice_max_age must not be negative")
	}
	if c.Watchkeeper.StateMaxAge < 0 {
		errs = append(errs, "watchkeeper.state_max_age must not be negative")
	}

	// Safety policy
	if err := c.SafetyPolicy().Validate(); err != nil {
		errs = append(errs, "safety: "+err.Error())
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Metrics
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with '/'")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SafetyPolicy converts the safety section into an engine policy.
func (c *Config) SafetyPolicy() safety.Policy {
	p := safety.Policy{
		Devices: safety.Devices{
			BilgeFloatHigh: c.Safety.Devices.BilgeFloatHigh,
			BilgeOverride:  c.Safety.Devices.BilgeOverride,
			NavLights:      c.Safety.Devices.NavLights,
			AnchorLight:    c.Safety.Devices.AnchorLight,
		},
		BilgeMaxRun: time.Duration(c.Safety.Bilge.MaxRunSeconds) * time.Second,
		BilgeRest:   time.Duration(c.Safety.Bilge.RestSeconds) * time.Second,
		LatchHold:   time.Duration(c.Safety.Latch.HoldSeconds) * time.Second,
	}
	if len(c.Safety.Latch.Overrides) > 0 {
		p.LatchHoldOverrides = make(map[string]time.Duration, len(c.Safety.Latch.Overrides))
		for id, s := range c.Safety.Latch.Overrides {
			p.LatchHoldOverrides[id] = time.Duration(s) * time.Second
		}
	}
	return p
}

// GetPollInterval returns the poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Watchkeeper.PollInterval) * time.Second
}

// GetCycleTimeout returns the per-cycle timeout as a Duration.
func (c *Config) GetCycleTimeout() time.Duration {
	return time.Duration(c.Watchkeeper.CycleTimeout) * time.Second
}

// GetAdviceMaxAge returns the maximum advice age as a Duration.
// Zero means advice never expires.
func (c *Config) GetAdviceMaxAge() time.Duration {
	return time.Duration(c.Watchkeeper.AdviceMaxAge) * time.Second
}

// GetStateMaxAge returns how long a device report stays valid.
// Zero means reports never expire.
func (c *Config) GetStateMaxAge() time.Duration {
	return time.Duration(c.Watchkeeper.StateMaxAge) * time.Second
}
