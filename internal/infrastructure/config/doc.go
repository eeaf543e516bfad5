// Package config loads the watchkeeper YAML file and applies WATCHKEEPER_*
// environment overrides on top of it.
//
// Load fills defaults first, so a file only needs the sections it changes.
// Validate then checks broker, database and telemetry settings together
// with the safety section: SafetyPolicy converts that section into the
// engine's policy, and a config that loads always yields a usable engine.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	engine, err := safety.NewEngine(cfg.SafetyPolicy())
//
// Keep the MQTT password and the InfluxDB token out of the file; set
// WATCHKEEPER_MQTT_PASSWORD and WATCHKEEPER_INFLUXDB_TOKEN instead.
package config
