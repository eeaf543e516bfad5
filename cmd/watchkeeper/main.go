// Watchkeeper - deterministic safety rules for small vessels.
//
// This is the main entry point for the watchkeeper service. Each poll cycle
// it reconciles the advisory layer's proposed actions with the vessel's
// observed device states, enforces the hard safety rules (bilge duty cycle,
// navigation lights) and dispatches the result over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/nerrad567/watchkeeper/migrations"

	"github.com/nerrad567/watchkeeper/internal/advisory"
	"github.com/nerrad567/watchkeeper/internal/audit"
	"github.com/nerrad567/watchkeeper/internal/dispatch"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/config"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/database"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/influxdb"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/logging"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/mqtt"
	"github.com/nerrad567/watchkeeper/internal/safety"
	"github.com/nerrad567/watchkeeper/internal/vessel"
	"github.com/nerrad567/watchkeeper/internal/watchkeeper"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "WATCHKEEPER_CONFIG"

	metricsShutdownTimeout = 5 * time.Second
	metricsReadTimeout     = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting watchkeeper",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"vessels", len(cfg.Vessels),
		"dry_run", cfg.Watchkeeper.DryRun,
	)

	policy := cfg.SafetyPolicy()
	tracker, err := loadVessels(cfg, policy, log)
	if err != nil {
		return err
	}

	// Audit database
	db, err := database.Open(database.Config{
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
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", net.JoinHostPort(cfg.MQTT.Broker.Host, strconv.Itoa(cfg.MQTT.Broker.Port)),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0-2 by config
	if subErr := tracker.Subscribe(mqttClient, qos); subErr != nil {
		return fmt.Errorf("subscribing to vessel state: %w", subErr)
	}

	mailbox := advisory.NewMailbox(cfg.GetAdviceMaxAge(), tracker.Vessels()...)
	mailbox.SetLogger(log.Component("advisory"))
	if subErr := mailbox.Subscribe(mqttClient, qos); subErr != nil {
		return fmt.Errorf("subscribing to advice: %w", subErr)
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	var telemetry watchkeeper.Telemetry
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Prometheus (optional)
	var metrics *watchkeeper.Metrics
	if cfg.Metrics.Enabled {
		metrics = watchkeeper.NewMetrics()
		stop := serveMetrics(cfg.Metrics, metrics, log)
		defer stop()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(mqttClient, tracker, qos)
	dispatcher.SetLogger(log.Component("dispatch"))
	dispatcher.SetDryRun(cfg.Watchkeeper.DryRun)

	watches := make([]*watchkeeper.Watch, 0, len(cfg.Vessels))
	for _, id := range tracker.Vessels() {
		engine, engErr := safety.NewEngine(policy)
		if engErr != nil {
			return fmt.Errorf("safety policy: %w", engErr)
		}
		w, watchErr := watchkeeper.NewWatch(id, engine, watchkeeper.Deps{
			Snapshots: tracker,
			Advice:    mailbox,
			Applier:   dispatcher,
			Audit:     auditRepo,
			Telemetry: telemetry,
			Publisher: mqttClient,
			Metrics:   metrics,
		})
		if watchErr != nil {
			return fmt.Errorf("creating watch for %s: %w", id, watchErr)
		}
		w.SetLogger(log.Vessel(id))
		watches = append(watches, w)
	}

	fleet, err := watchkeeper.NewFleet(cfg.GetPollInterval(), cfg.GetCycleTimeout(), watches...)
	if err != nil {
		return fmt.Errorf("creating fleet: %w", err)
	}
	fleet.SetLogger(log.Component("fleet"))

	log.Info("watchkeeper started", "vessels", tracker.Vessels())
	if err := fleet.Run(ctx); err != nil {
		return fmt.Errorf("running fleet: %w", err)
	}

	log.Info("shutting down watchkeeper")
	return nil
}

// getConfigPath returns the config file path from WATCHKEEPER_CONFIG,
// falling back to configs/config.yaml.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadVessels resolves every configured vessel profile into a tracker.
// A profile that lacks a safety device is accepted with a warning: the
// matching rule simply never fires for that vessel.
func loadVessels(cfg *config.Config, policy safety.Policy, log *logging.Logger) (*vessel.Tracker, error) {
	tracker := vessel.NewTracker()
	tracker.SetLogger(log.Component("vessel"))
	tracker.SetStaleAfter(cfg.GetStateMaxAge())

	d := policy.Devices
	for _, vc := range cfg.Vessels {
		profile, err := vessel.ResolveProfile(vc.Profile)
		if err != nil {
			return nil, fmt.Errorf("loading profile for %s: %w", vc.ID, err)
		}
		if err := tracker.AddVessel(vc.ID, profile); err != nil {
			return nil, fmt.Errorf("adding vessel %s: %w", vc.ID, err)
		}
		if err := profile.Require(d.BilgeFloatHigh, d.BilgeOverride, d.NavLights, d.AnchorLight); err != nil {
			log.Warn("vessel profile incomplete", "vessel", vc.ID, "error", err)
		}
		log.Info("vessel loaded", "vessel", vc.ID, "name", vc.Name, "profile", profile.ID, "devices", len(profile.Devices))
	}
	return tracker, nil
}

// serveMetrics starts the Prometheus listener and returns its shutdown func.
func serveMetrics(cfg config.MetricsConfig, metrics *watchkeeper.Metrics, log *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}
	go func() {
		log.Info("metrics listener started", "addr", srv.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("error stopping metrics listener", "error", err)
		}
	}
}

// healthCheck verifies the infrastructure is reachable. influxClient may be
// nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
