// Package logging builds the service's slog logger.
//
// Every entry carries service=watchkeeper and the build version. Packages
// never import this one: they declare the few methods they need as a local
// Logger interface and main passes a child logger in, tagged per component
// or per vessel:
//
//	log := logging.New(cfg.Logging, version)
//	watch.SetLogger(log.Vessel("aurora"))
//	dispatcher.SetLogger(log.Component("dispatch"))
//
// The poll loop writes one info line per cycle whose message is the cycle
// summary, so a text-format log reads as a watch log:
//
//	level=INFO msg="anchor: 1 action (1 safety correction); executed 1" vessel=aurora cycle_id=cyc-3f2a9c01
//
// Config:
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: json     # json, text
//	  output: stdout   # stdout, stderr
//
// MQTT passwords and InfluxDB tokens must never be logged.
package logging
